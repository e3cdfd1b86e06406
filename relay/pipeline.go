package relay

import (
	"context"
	"fmt"

	"github.com/graphprotocol/metatx-relay/metatx"
	"github.com/streamingfast/eth-go"
	"go.uber.org/zap"
)

// TypedDataSigner hands a typed message to an external signer and returns
// the raw 65 bytes signature. Implementations may block on user interaction,
// only ctx bounds the call.
type TypedDataSigner interface {
	SignTypedData(ctx context.Context, account eth.Address, message *metatx.TypedMessage) ([]byte, error)
}

// Pipeline chains a full meta-transaction: nonce read, message build,
// signing, decoding, local verification and relay submission
type Pipeline struct {
	session   *Session
	signer    TypedDataSigner
	submitter *Submitter
	verify    bool
	logger    *zap.Logger
}

func NewPipeline(session *Session, signer TypedDataSigner, submitter *Submitter) *Pipeline {
	return &Pipeline{
		session:   session,
		signer:    signer,
		submitter: submitter,
		verify:    session.config.VerifySignature,
		logger:    session.logger,
	}
}

// Sign reads the current nonce of from, builds the typed message for call
// and has it signed. Nothing is sent to the chain.
func (p *Pipeline) Sign(ctx context.Context, from eth.Address, call []byte) (*metatx.TypedMessage, *metatx.SignatureComponents, error) {
	nonce, err := p.session.Nonce(ctx, from)
	if err != nil {
		return nil, nil, fmt.Errorf("reading nonce: %w", err)
	}

	message := metatx.NewTypedMessage(p.session.domain, nonce, from, call)

	raw, err := p.signer.SignTypedData(ctx, from, message)
	if err != nil {
		return nil, nil, err
	}

	signature, err := metatx.DecodeSignature(raw)
	if err != nil {
		return nil, nil, err
	}

	if p.verify {
		if _, err := metatx.VerifySigner(message, signature.Bytes()); err != nil {
			return nil, nil, err
		}
	}

	p.logger.Debug("meta-transaction signed",
		zap.Stringer("from", from),
		zap.Stringer("nonce", nonce),
		zap.Uint8("v", signature.V),
	)

	return message, signature, nil
}

// Submit signs call on behalf of from and relays it. Any error before the
// relay step is returned directly and no gas is spent, later failures are
// reported by the Submission.
func (p *Pipeline) Submit(ctx context.Context, from eth.Address, call []byte) (*Submission, error) {
	message, signature, err := p.Sign(ctx, from, call)
	if err != nil {
		return nil, err
	}

	return p.submitter.Submit(ctx, &Request{
		From:              message.Message.From,
		FunctionSignature: message.Message.FunctionSignature,
		Signature:         signature,
	}), nil
}

// SetQuote relays setQuote(value) on behalf of from
func (p *Pipeline) SetQuote(ctx context.Context, from eth.Address, value string) (*Submission, error) {
	call, err := p.session.EncodeSetQuote(value)
	if err != nil {
		return nil, err
	}
	return p.Submit(ctx, from, call)
}

// Refresh reads the current contract state
func (p *Pipeline) Refresh(ctx context.Context) (*State, error) {
	return p.session.State(ctx)
}
