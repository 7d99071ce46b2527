package database

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrInvalidEncoding is returned for account ids that are not valid UTF-8.
// The canonical encoding replaces invalid bytes, so two such ids could share
// a fingerprint.
var ErrInvalidEncoding = errors.New("account id is not valid utf-8")

// Tx is a transfer of value between two accounts. Transactions from the
// system account carry no signature, all others must be signed by the
// sender before they are accepted.
type Tx struct {
	FromID    AccountID     `json:"from"`                // Account sending the value, SystemAccountID for issuance.
	ToID      AccountID     `json:"to"`                  // Account receiving the value.
	Value     uint64        `json:"value"`               // Monetary value moved by this transaction.
	TimeStamp uint64        `json:"timestamp"`           // Unix milliseconds when the transaction was created.
	Signature hexutil.Bytes `json:"signature,omitempty"` // [R|S|V] signature over the fingerprint, nil when unsigned.
}

// NewTx constructs a new unsigned transaction stamped with the specified time.
func NewTx(fromID AccountID, toID AccountID, value uint64, now time.Time) Tx {
	return Tx{
		FromID:    fromID,
		ToID:      toID,
		Value:     value,
		TimeStamp: uint64(now.UTC().UnixMilli()),
	}
}

// NewRewardTx constructs the system issued transaction that pays the
// beneficiary of a mined block.
func NewRewardTx(beneficiaryID AccountID, reward uint64, now time.Time) Tx {
	return NewTx(SystemAccountID, beneficiaryID, reward, now)
}

// fingerprint is the payload hashed to identify and sign a transaction.
// Fields are declared in ascending order of their JSON names.
type fingerprint struct {
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
	Sender    string `json:"sender"`
	Timestamp uint64 `json:"timestamp"`
}

// Fingerprint returns the hex encoded sha256 of the canonical encoding of
// the sender, recipient, amount and timestamp. The signature is not part of
// the fingerprint.
func (tx Tx) Fingerprint() string {
	fp := fingerprint{
		Amount:    tx.Value,
		Recipient: string(tx.ToID),
		Sender:    string(tx.FromID),
		Timestamp: tx.TimeStamp,
	}

	hash, err := signature.Hash(fp)
	if err != nil {
		return signature.ZeroHash
	}

	return hash
}

// Validate checks the account ids can be encoded without loss.
func (tx Tx) Validate() error {
	if !utf8.ValidString(string(tx.FromID)) {
		return fmt.Errorf("%w: from %q", ErrInvalidEncoding, tx.FromID)
	}

	if !utf8.ValidString(string(tx.ToID)) {
		return fmt.Errorf("%w: to %q", ErrInvalidEncoding, tx.ToID)
	}

	return nil
}

// Sign uses the specified private key to sign the transaction and returns
// the signed copy. Transactions from the system account are returned as is.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (Tx, error) {
	if err := tx.Validate(); err != nil {
		return Tx{}, err
	}

	if tx.FromID.IsSystem() {
		return tx, nil
	}

	sig, err := signature.Sign(tx.Fingerprint(), privateKey)
	if err != nil {
		return Tx{}, fmt.Errorf("signing transaction: %w", err)
	}

	tx.Signature = sig

	return tx, nil
}

// IsSigned reports whether a signature is present.
func (tx Tx) IsSigned() bool {
	return tx.Signature != nil
}

// Verify reports whether the transaction is authorized by the owner of the
// public key. System transactions always verify and unsigned transactions
// never do. Account ids that are not valid UTF-8 and any cryptographic
// failure report false.
func (tx Tx) Verify(publicKey *ecdsa.PublicKey) bool {
	if tx.Validate() != nil {
		return false
	}

	if tx.FromID.IsSystem() {
		return true
	}

	if !tx.IsSigned() {
		return false
	}

	return signature.Verify(tx.Fingerprint(), tx.Signature, publicKey)
}

// Hash implements the merkle Hashable interface for providing the leaf hash
// of a transaction, the sha256 of its fingerprint.
func (tx Tx) Hash() ([]byte, error) {
	hash := sha256.Sum256([]byte(tx.Fingerprint()))
	return hash[:], nil
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two transactions.
func (tx Tx) Equals(otherTx Tx) bool {
	return tx.Fingerprint() == otherTx.Fingerprint() && bytes.Equal(tx.Signature, otherTx.Signature)
}

// Clone implements the merkle Cloner interface so copies of a block never
// share signature bytes.
func (tx Tx) Clone() Tx {
	tx.Signature = bytes.Clone(tx.Signature)
	return tx
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s->%s:%d", tx.FromID, tx.ToID, tx.Value)
}
