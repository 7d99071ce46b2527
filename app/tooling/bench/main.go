package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/logger"
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {
	log, err := logger.New("BENCH")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Errorw("bench", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Duration           time.Duration `conf:"default:30s"`
		MaxBlocks          int           `conf:"default:0,help:stop after this many blocks, 0 runs for the duration"`
		Difficulty         uint          `conf:"default:4"`
		TxPerBlock         int           `conf:"default:5"`
		Workers            int           `conf:"default:0,help:mining goroutines, 0 uses one per CPU"`
		TargetBlockTime    time.Duration `conf:"default:10s"`
		AdjustmentInterval int           `conf:"default:10"`
		Verbose            bool          `conf:"default:false"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "proof of work ledger hash rate bench",
		},
	}

	const prefix = "BENCH"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	gen := genesis.Default()
	gen.Difficulty = cfg.Difficulty
	gen.TargetBlockTime = genesis.Duration{Duration: cfg.TargetBlockTime}
	gen.AdjustmentInterval = cfg.AdjustmentInterval

	bc := benchConfig{
		Genesis:    gen,
		Duration:   cfg.Duration,
		MaxBlocks:  cfg.MaxBlocks,
		TxPerBlock: cfg.TxPerBlock,
		Workers:    cfg.Workers,
	}

	if cfg.Verbose {
		bc.EvHandler = func(v string, args ...any) {
			log.Infof(v, args...)
		}
	}

	title, err := pterm.DefaultBigText.WithLetters(putils.LettersFromString("POW")).Srender()
	if err == nil {
		pterm.Print(title)
	}

	pterm.Info.Printfln("difficulty %d, %d transactions per block, running for %v", cfg.Difficulty, cfg.TxPerBlock, cfg.Duration)

	spinner, _ := pterm.DefaultSpinner.Start("mining")
	results, err := runBench(context.Background(), bc)
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	spinner.Success(fmt.Sprintf("mined %d blocks", len(results)))

	render(results)

	return nil
}

// render prints the per block measurements and a hash rate chart.
func render(results []result) {
	if len(results) == 0 {
		pterm.Warning.Println("no blocks were mined, try a lower difficulty or a longer duration")
		return
	}

	data := pterm.TableData{
		{"Block", "Difficulty", "Txs", "Attempts", "Duration", "Hash Rate"},
	}

	bars := make(pterm.Bars, 0, len(results))

	var attempts uint64
	var elapsed time.Duration
	for _, r := range results {
		data = append(data, []string{
			strconv.FormatUint(r.Number, 10),
			strconv.FormatUint(uint64(r.Difficulty), 10),
			strconv.Itoa(r.Trans),
			strconv.FormatUint(r.Attempts, 10),
			r.Duration.Round(time.Microsecond).String(),
			fmt.Sprintf("%.0f H/s", r.HashRate),
		})

		bars = append(bars, pterm.Bar{
			Label: strconv.FormatUint(r.Number, 10),
			Value: int(r.HashRate),
		})

		attempts += r.Attempts
		elapsed += r.Duration
	}

	pterm.DefaultSection.Println("Blocks")
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	pterm.DefaultSection.Println("Hash rate per block")
	pterm.DefaultBarChart.WithBars(bars).WithShowValue().Render()

	var rate float64
	if elapsed > 0 {
		rate = float64(attempts) / elapsed.Seconds()
	}
	pterm.Info.Printfln("%d attempts in %v, average %.0f H/s", attempts, elapsed.Round(time.Millisecond), rate)
}
