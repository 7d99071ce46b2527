package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/powledger/business/web/errs"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to    string
	value uint64
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account receiving the value.")
	sendCmd.Flags().Uint64VarP(&value, "value", "v", 0, "Value to send.")
	sendCmd.MarkFlagRequired("to")
}

func sendRun(cmd *cobra.Command, args []string) error {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return err
	}

	fromID := database.PublicKeyToAccountID(privateKey.PublicKey)

	tx, err := database.NewTx(fromID, database.AccountID(to), value, time.Now()).Sign(privateKey)
	if err != nil {
		return err
	}

	data, err := json.Marshal(tx)
	if err != nil {
		return err
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}

	fmt.Println(tx.Fingerprint())
	return nil
}

// responseError converts a failed node response into an error.
func responseError(resp *http.Response) error {
	var er errs.Response
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("node responded %s", resp.Status)
	}

	if len(er.Fields) > 0 {
		return fmt.Errorf("node responded %s: %s: %v", resp.Status, er.Error, er.Fields)
	}

	if er.Code != "" {
		return fmt.Errorf("node responded %s: %s: %s", resp.Status, er.Code, er.Error)
	}

	return fmt.Errorf("node responded %s: %s", resp.Status, er.Error)
}
