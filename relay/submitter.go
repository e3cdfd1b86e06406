package relay

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/graphprotocol/metatx-relay/metatx"
	"github.com/streamingfast/eth-go"
	"go.uber.org/zap"
)

// Refresher re-reads the contract state after a confirmed submission
type Refresher func(ctx context.Context) (*State, error)

// Request is an already signed meta-transaction ready to be relayed
type Request struct {
	From              eth.Address
	FunctionSignature []byte
	Signature         *metatx.SignatureComponents
}

// Submitter relays signed meta-transactions, paying gas with the relayer
// account. A submission is attempted once, failures are never retried.
type Submitter struct {
	session      *Session
	account      *Account
	refresher    Refresher
	pollInterval time.Duration
	logger       *zap.Logger
}

type SubmitterOption func(*Submitter)

// WithRefresher overrides the function invoked after confirmation, the
// session's State by default
func WithRefresher(refresher Refresher) SubmitterOption {
	return func(s *Submitter) {
		s.refresher = refresher
	}
}

func WithPollInterval(interval time.Duration) SubmitterOption {
	return func(s *Submitter) {
		s.pollInterval = interval
	}
}

func WithLogger(logger *zap.Logger) SubmitterOption {
	return func(s *Submitter) {
		s.logger = logger
	}
}

func NewSubmitter(session *Session, account *Account, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		session:      session,
		account:      account,
		refresher:    session.State,
		pollInterval: session.config.PollInterval,
		logger:       session.logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultConfig().PollInterval
	}
	return s
}

func (s *Submitter) Account() *Account {
	return s.account
}

// Submit starts relaying req and returns immediately. Progress is reported
// through the returned Submission, ctx cancels the whole lifecycle.
func (s *Submitter) Submit(ctx context.Context, req *Request) *Submission {
	submission := newSubmission()
	go s.run(ctx, submission, req)
	return submission
}

func (s *Submitter) run(ctx context.Context, submission *Submission, req *Request) {
	logger := s.logger.With(zap.String("submission_id", submission.ID), zap.Stringer("from", req.From))

	if req.Signature == nil {
		submission.failed(fmt.Errorf("%w: missing signature", metatx.ErrMalformedSignature))
		return
	}

	signature := req.Signature.Canonical()
	data, err := s.session.contract.CallData("executeMetaTransaction",
		req.From,
		req.FunctionSignature,
		signature.R[:],
		signature.S[:],
		signature.V,
	)
	if err != nil {
		submission.failed(err)
		return
	}

	gasLimit, err := s.session.backend.EstimateGas(ctx, req.From, s.session.contract.Address, data)
	if err != nil {
		logger.Info("gas estimation failed", zap.Error(err))
		submission.failed(fmt.Errorf("%w: %w", metatx.ErrGasEstimationFailed, err))
		return
	}

	gasPrice, err := s.session.backend.GasPrice(ctx)
	if err != nil {
		submission.failed(fmt.Errorf("getting gas price: %w", err))
		return
	}
	submission.setGas(gasLimit, gasPrice)

	logger.Debug("relaying meta-transaction",
		zap.Uint64("gas_limit", gasLimit),
		zap.Stringer("gas_price", gasPrice),
		zap.Stringer("relayer", s.account.Address()),
	)

	txHash, err := s.account.Send(ctx, s.session.backend, s.session.contract.Address, gasLimit, gasPrice, data)
	if err != nil {
		submission.failed(fmt.Errorf("%w: %w", metatx.ErrSubmissionReverted, err))
		return
	}

	logger.Info("meta-transaction submitted", zap.String("tx_hash", txHash))
	submission.submitted(txHash)

	receipt, err := s.waitForReceipt(ctx, txHash)
	if err != nil {
		submission.failed(err)
		return
	}

	if !receipt.Succeeded() {
		reason := s.revertReason(ctx, data, receipt)
		logger.Info("meta-transaction reverted", zap.String("tx_hash", txHash), zap.Error(reason))
		if reason != nil {
			submission.failed(fmt.Errorf("%w: transaction %s: %w", metatx.ErrSubmissionReverted, txHash, reason))
		} else {
			submission.failed(fmt.Errorf("%w: transaction %s has status %d", metatx.ErrSubmissionReverted, txHash, receipt.Status))
		}
		return
	}

	refreshed, refreshErr := s.refresher(ctx)
	if refreshErr != nil {
		logger.Debug("state refresh after confirmation failed", zap.Error(refreshErr))
	}

	logger.Info("meta-transaction confirmed", zap.String("tx_hash", txHash))
	submission.confirmed(receipt, refreshed, refreshErr)
}

// revertReason replays the reverted call at its block, the node's error
// carries the contract's revert reason. Nil when the replay succeeds.
func (s *Submitter) revertReason(ctx context.Context, data []byte, receipt *Receipt) error {
	return s.session.backend.ReplayCall(ctx, s.account.Address(), s.session.contract.Address, data, receipt.BlockNumber)
}

func (s *Submitter) waitForReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.session.backend.TransactionReceipt(ctx, txHash)
		if err != nil {
			s.logger.Debug("receipt not available yet", zap.String("tx_hash", txHash), zap.Error(err))
		} else if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt of %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// GasCost returns gasLimit * gasPrice, the maximum the relayer pays
func GasCost(gasLimit uint64, gasPrice *big.Int) *big.Int {
	if gasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), gasPrice)
}
