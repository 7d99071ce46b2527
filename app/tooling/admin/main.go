// This program performs administrative tasks against an exported chain.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/powledger/app/tooling/admin/commands"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
	"github.com/ardanlabs/powledger/foundation/logger"
	"github.com/ardanlabs/powledger/foundation/nameservice"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args        conf.Args
		ChainFile   string `conf:"default:zblock/chain.json,help:chain in the format returned by the export route"`
		GenesisFile string `conf:"help:genesis file, the defaults are used when empty"`
		Accounts    string `conf:"help:folder of account keys used to name accounts"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "commands: validate | bals [account] | trans [account]",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	gen := genesis.Default()
	if cfg.GenesisFile != "" {
		gen, err = genesis.Load(cfg.GenesisFile)
		if err != nil {
			return fmt.Errorf("unable to load genesis file: %w", err)
		}
	}

	ns := nameservice.New()
	if cfg.Accounts != "" {
		ns, err = nameservice.Load(cfg.Accounts)
		if err != nil {
			return fmt.Errorf("unable to load account name service: %w", err)
		}
	}

	blocks, err := database.LoadChain(cfg.ChainFile)
	if err != nil {
		return fmt.Errorf("unable to load chain file: %w", err)
	}

	ev := func(v string, args ...any) {
		log.Debugw(fmt.Sprintf(v, args...))
	}

	return processCommands(cfg.Args, blocks, gen, ns, ev)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, blocks []database.Block, gen genesis.Genesis, ns *nameservice.NameService, ev ledger.EventHandler) error {
	if args.Num(0) == "validate" {
		if err := commands.Validate(os.Stdout, blocks, gen, ev); err != nil {
			return fmt.Errorf("validating chain: %w", err)
		}
		return nil
	}

	l, err := ledger.New(ledger.Config{
		Genesis:   gen,
		Directory: ns,
		Blocks:    blocks,
		EvHandler: ev,
	})
	if err != nil {
		return err
	}

	switch args.Num(0) {
	case "bals":
		if err := commands.Balances(os.Stdout, args.Num(1), l, ns); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}

	case "trans":
		if err := commands.Transactions(os.Stdout, args.Num(1), l, ns); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}

	default:
		return fmt.Errorf("unknown command %q", args.Num(0))
	}

	return nil
}
