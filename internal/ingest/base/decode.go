package base

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LTAI is an 18-decimal ERC-20.
const ltaiDecimals = 18

type paymentProcessed struct {
	Sender common.Address
	Amount *big.Int
}

func decodePaymentProcessed(lg types.Log) (*paymentProcessed, error) {
	if len(lg.Topics) < 2 {
		return nil, fmt.Errorf("insufficient topics (got %d)", len(lg.Topics))
	}
	values, err := paymentProcessedEvent.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack PaymentProcessed: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected PaymentProcessed decode length: %d", len(values))
	}
	amount, ok := values[0].(*big.Int)
	if !ok || amount == nil {
		return nil, fmt.Errorf("PaymentProcessed amount is not a uint256")
	}
	return &paymentProcessed{
		Sender: common.BytesToAddress(lg.Topics[1].Bytes()),
		Amount: amount,
	}, nil
}

func mustParseABI(jsonStr string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(jsonStr))
	if err != nil {
		panic(err)
	}
	return parsed
}

var (
	paymentProcessorABI = mustParseABI(`[
		{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"sender","type":"address"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"}],"name":"PaymentProcessed","type":"event"}
	]`)

	paymentProcessedEvent = paymentProcessorABI.Events["PaymentProcessed"]
)
