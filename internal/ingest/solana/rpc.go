package solana

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SignatureInfo is the slice of a confirmed-signature entry the poller needs.
type SignatureInfo struct {
	Signature string
	Slot      uint64
}

// TransactionMeta carries the program log lines payment events are decoded
// from, plus whether the transaction itself failed on chain.
type TransactionMeta struct {
	Failed      bool
	LogMessages []string
}

type RPCClient interface {
	SignaturesForAddress(ctx context.Context, account solana.PublicKey, limit int) ([]SignatureInfo, error)
	TransactionMeta(ctx context.Context, signature string) (*TransactionMeta, error)
}

// Client adapts the solana-go RPC client to the narrow surface above.
type Client struct {
	rpc *rpc.Client
}

func NewClient(endpoint string) *Client {
	return &Client{rpc: rpc.New(endpoint)}
}

func (c *Client) SignaturesForAddress(ctx context.Context, account solana.PublicKey, limit int) ([]SignatureInfo, error) {
	sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, account, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, err
	}
	out := make([]SignatureInfo, 0, len(sigs))
	for _, sig := range sigs {
		out = append(out, SignatureInfo{
			Signature: sig.Signature.String(),
			Slot:      sig.Slot,
		})
	}
	return out, nil
}

func (c *Client) TransactionMeta(ctx context.Context, signature string) (*TransactionMeta, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, err
	}
	maxVersion := uint64(0)
	res, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingJSON,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Meta == nil {
		return nil, nil
	}
	return &TransactionMeta{
		Failed:      res.Meta.Err != nil,
		LogMessages: res.Meta.LogMessages,
	}, nil
}
