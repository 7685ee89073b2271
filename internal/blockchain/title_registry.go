package blockchain

import (
	"context"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/memo"
	"github.com/mr-tron/base58"
)

// TitleRegistry records final card-title grants on chain. The off-chain
// claim bookkeeping is authoritative; this writes the public record of who
// ended up with each outcome card after a circuit-broken market.
type TitleRegistry struct {
	client    *SolanaClient
	programID string
}

// NewTitleRegistry creates a new title registry instance
func NewTitleRegistry(client *SolanaClient, programID string) *TitleRegistry {
	return &TitleRegistry{
		client:    client,
		programID: programID,
	}
}

// TransferCardTitle publishes the title grant of a card to the recipient
// wallet and returns the transaction signature.
func (t *TitleRegistry) TransferCardTitle(ctx context.Context, marketID, cardIndex uint, recipientWallet string) (string, error) {
	if _, err := base58.Decode(recipientWallet); err != nil {
		return "", fmt.Errorf("invalid recipient wallet: %w", err)
	}
	recipient, err := solana.PublicKeyFromBase58(recipientWallet)
	if err != nil {
		return "", fmt.Errorf("invalid recipient wallet: %w", err)
	}

	wallet := t.client.ServerWallet()
	if wallet == nil {
		return "", fmt.Errorf("server wallet not configured")
	}

	blockhash, err := t.client.GetRecentBlockhash(ctx)
	if err != nil {
		return "", err
	}

	record := fmt.Sprintf("card-title:market=%d:card=%d:owner=%s", marketID, cardIndex, recipient)
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			memo.NewMemoInstruction([]byte(record), wallet.PublicKey()).Build(),
		},
		blockhash,
		solana.TransactionPayer(wallet.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build title transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(wallet.PublicKey()) {
			pk := wallet.PrivateKey
			return &pk
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign title transaction: %w", err)
	}

	sig, err := t.client.SendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}

	log.Printf("Card title recorded on chain: market=%d card=%d recipient=%s sig=%s",
		marketID, cardIndex, recipientWallet, sig)
	return sig.String(), nil
}
