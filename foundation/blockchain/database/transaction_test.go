package database_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	pkHexKey      = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	otherPKHexKey = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

// =============================================================================

func Test_Fingerprint(t *testing.T) {
	tx := database.NewTx("alice", "bob", 10, time.UnixMilli(1700000000000))

	// sha256 of {"amount":10,"recipient":"bob","sender":"alice","timestamp":1700000000000}
	const exp = "544d9fa1d3d9decd66bcd7902588a83615f9831c8dbd99913e9f91e3c3fd9008"

	if got := tx.Fingerprint(); got != exp {
		t.Logf("got: %s", got)
		t.Logf("exp: %s", exp)
		t.Fatalf("Should get back the canonical fingerprint.")
	}

	signed := tx
	signed.Signature = []byte{1, 2, 3}
	if signed.Fingerprint() != exp {
		t.Fatalf("Should not include the signature in the fingerprint.")
	}
}

func Test_SignVerify(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	other, err := crypto.HexToECDSA(otherPKHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	from := database.PublicKeyToAccountID(pk.PublicKey)
	tx := database.NewTx(from, "bob", 10, time.Now())

	t.Log("Given the need to sign and verify transactions.")
	{
		t.Logf("\tTest 0:\tWhen handling an unsigned transaction.")
		{
			if tx.Verify(&pk.PublicKey) {
				t.Fatalf("\t%s\tTest 0:\tShould not verify an unsigned transaction.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not verify an unsigned transaction.", success)
		}

		signed, err := tx.Sign(pk)
		if err != nil {
			t.Fatalf("\t%s\tTest 1:\tShould be able to sign the transaction: %v", failed, err)
		}

		t.Logf("\tTest 1:\tWhen handling a signed transaction.")
		{
			if !signed.Verify(&pk.PublicKey) {
				t.Fatalf("\t%s\tTest 1:\tShould verify with the signing key.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould verify with the signing key.", success)

			if signed.Verify(&other.PublicKey) {
				t.Fatalf("\t%s\tTest 1:\tShould not verify with a different key.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould not verify with a different key.", success)

			if signed.Verify(nil) {
				t.Fatalf("\t%s\tTest 1:\tShould not verify with a missing key.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould not verify with a missing key.", success)

			if tx.IsSigned() {
				t.Fatalf("\t%s\tTest 1:\tShould leave the original transaction unsigned.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould leave the original transaction unsigned.", success)
		}

		t.Logf("\tTest 2:\tWhen a signed transaction is modified.")
		{
			mutated := signed
			mutated.Value = 11
			if mutated.Verify(&pk.PublicKey) {
				t.Fatalf("\t%s\tTest 2:\tShould not verify after the amount changes.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould not verify after the amount changes.", success)

			mutated = signed
			mutated.ToID = "mallory"
			if mutated.Verify(&pk.PublicKey) {
				t.Fatalf("\t%s\tTest 2:\tShould not verify after the recipient changes.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould not verify after the recipient changes.", success)

			mutated = signed
			mutated.Signature = []byte{1, 2, 3}
			if mutated.Verify(&pk.PublicKey) {
				t.Fatalf("\t%s\tTest 2:\tShould not verify a malformed signature.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould not verify a malformed signature.", success)
		}
	}
}

func Test_InvalidEncoding(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to decode the private key: %s", err)
	}
	from := database.PublicKeyToAccountID(pk.PublicKey)
	now := time.Now()

	t.Log("Given the need to only sign and verify account ids with a canonical encoding.")
	{
		t.Logf("\tTest 0:\tWhen the recipient is not valid UTF-8.")
		{
			tx := database.NewTx(from, "bob\xff", 5, now)

			if err := tx.Validate(); !errors.Is(err, database.ErrInvalidEncoding) {
				t.Fatalf("\t%s\tTest 0:\tShould report the invalid encoding, got %v", failed, err)
			}

			if _, err := tx.Sign(pk); !errors.Is(err, database.ErrInvalidEncoding) {
				t.Fatalf("\t%s\tTest 0:\tShould refuse to sign, got %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould refuse to sign.", success)
		}

		t.Logf("\tTest 1:\tWhen a signed transaction is redirected to a recipient with the same encoding.")
		{
			signed, err := database.NewTx(from, "bob\uFFFD", 5, now).Sign(pk)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to sign: %s", failed, err)
			}

			redirected := signed
			redirected.ToID = "bob\xff"

			if !signed.Verify(&pk.PublicKey) {
				t.Fatalf("\t%s\tTest 1:\tShould verify the original.", failed)
			}

			if redirected.Verify(&pk.PublicKey) {
				t.Fatalf("\t%s\tTest 1:\tShould not verify the redirected transaction.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould not verify the redirected transaction.", success)
		}

		t.Logf("\tTest 2:\tWhen a system transaction pays an invalid UTF-8 account.")
		{
			if database.NewRewardTx("miner\xfe", 50, now).Verify(nil) {
				t.Fatalf("\t%s\tTest 2:\tShould not verify the transaction.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould not verify the transaction.", success)
		}
	}
}

func Test_SystemTransaction(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	tx := database.NewRewardTx("miner", 50, time.Now())

	signed, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("Should be able to sign a system transaction: %s", err)
	}

	if signed.IsSigned() {
		t.Fatalf("Should not attach a signature to a system transaction.")
	}

	if !signed.Verify(nil) {
		t.Fatalf("Should always verify a system transaction.")
	}
}

func Test_AccountID(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	accountID := database.PublicKeyToAccountID(pk.PublicKey)
	if !accountID.IsAccountID() {
		t.Fatalf("Should get back a valid account id: %s", accountID)
	}

	if _, err := database.ToAccountID("miner"); err == nil {
		t.Fatalf("Should not accept a malformed account id.")
	}

	if !database.SystemAccountID.IsSystem() || accountID.IsSystem() {
		t.Fatalf("Should only report the system account as the system.")
	}
}
