package blockchain

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaClient handles Solana blockchain interactions for the card-title
// registry.
type SolanaClient struct {
	rpcClient    *rpc.Client
	network      string
	serverWallet *solana.Wallet
}

// NewSolanaClient creates a new Solana client
func NewSolanaClient(network, privateKey string) *SolanaClient {
	var rpcURL string
	switch network {
	case "mainnet-beta":
		rpcURL = "https://api.mainnet-beta.solana.com"
	case "testnet":
		rpcURL = "https://api.testnet.solana.com"
	default:
		rpcURL = "https://api.devnet.solana.com"
	}

	client := &SolanaClient{
		rpcClient: rpc.New(rpcURL),
		network:   network,
	}

	// Initialize server wallet if private key is provided
	if privateKey != "" {
		wallet, err := solana.WalletFromPrivateKeyBase58(privateKey)
		if err != nil {
			log.Printf("Warning: Failed to load server wallet: %v", err)
		} else {
			client.serverWallet = wallet
			log.Printf("Server wallet loaded: %s", wallet.PublicKey())
		}
	}

	return client
}

// ServerWallet returns the server signing wallet, or nil when not configured.
func (s *SolanaClient) ServerWallet() *solana.Wallet {
	return s.serverWallet
}

// SendTransaction sends a signed transaction to the network
func (s *SolanaClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := s.rpcClient.SendTransactionWithOpts(
		ctx,
		tx,
		rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

// GetRecentBlockhash gets the latest blockhash
func (s *SolanaClient) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	resp, err := s.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	return resp.Value.Blockhash, nil
}

// VerifyTransaction waits for a signature to reach the given confirmation
// count, polling the RPC node.
func (s *SolanaClient) VerifyTransaction(ctx context.Context, signature string, minConfirmations int) (bool, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return false, fmt.Errorf("invalid signature: %w", err)
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		statuses, err := s.rpcClient.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return false, fmt.Errorf("failed to get signature status: %w", err)
		}
		if len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return false, fmt.Errorf("transaction failed on chain: %v", status.Err)
			}
			if status.Confirmations == nil || int(*status.Confirmations) >= minConfirmations {
				return true, nil
			}
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return false, nil
}
