package relayer

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/graphprotocol/metatx-relay/metatx"
	"github.com/graphprotocol/metatx-relay/relay"
	"github.com/streamingfast/eth-go"
	"go.uber.org/zap"
)

type errorResponse struct {
	ID            string `json:"id,omitempty"`
	Error         string `json:"error"`
	NonceMismatch bool   `json:"nonceMismatch,omitempty"`
}

type stateResponse struct {
	Value string `json:"value"`
	Owner string `json:"owner"`
}

type nonceResponse struct {
	Address string `json:"address"`
	Nonce   string `json:"nonce"`
}

type domainResponse struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	Salt              string `json:"salt"`
	VerifyingContract string `json:"verifyingContract"`
	ChainID           string `json:"chainId"`
}

type relayRequest struct {
	From              string `json:"from" binding:"required"`
	FunctionSignature string `json:"functionSignature" binding:"required"`
	Signature         string `json:"signature" binding:"required"`
}

type relayResponse struct {
	ID   string `json:"id"`
	Hash string `json:"hash"`
}

type submissionResponse struct {
	ID       string `json:"id"`
	State    string `json:"state"`
	Hash     string `json:"hash,omitempty"`
	Error    string `json:"error,omitempty"`
	GasLimit uint64 `json:"gasLimit,omitempty"`
	GasPrice string `json:"gasPrice,omitempty"`
}

func (r *Relayer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Relayer) handleGetState(c *gin.Context) {
	state, err := r.session.State(c.Request.Context())
	if err != nil {
		if errors.Is(err, metatx.ErrEmptyState) {
			c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}

		r.logger.Warn("reading contract state", zap.Error(err))
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, stateResponse{Value: state.Value, Owner: state.Owner.Pretty()})
}

func (r *Relayer) handleGetNonce(c *gin.Context) {
	address, err := eth.NewAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid address: " + err.Error()})
		return
	}

	nonce, err := r.session.Nonce(c.Request.Context(), address)
	if err != nil {
		r.logger.Warn("reading nonce", zap.Stringer("address", address), zap.Error(err))
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, nonceResponse{Address: address.Pretty(), Nonce: nonce.String()})
}

func (r *Relayer) handleGetDomain(c *gin.Context) {
	domain := r.session.Domain()

	c.JSON(http.StatusOK, domainResponse{
		Name:              domain.Name,
		Version:           domain.Version,
		Salt:              hexutil.Encode(domain.Salt[:]),
		VerifyingContract: domain.VerifyingContract.Pretty(),
		ChainID:           domain.ChainID().String(),
	})
}

func (r *Relayer) handleRelay(c *gin.Context) {
	var request relayRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	from, err := eth.NewAddress(request.From)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid from address: " + err.Error()})
		return
	}

	functionSignature, err := hexutil.Decode(request.FunctionSignature)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid functionSignature: " + err.Error()})
		return
	}

	signature, err := metatx.DecodeSignatureHex(request.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if r.verify {
		nonce, err := r.session.Nonce(c.Request.Context(), from)
		if err != nil {
			c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
			return
		}

		message := metatx.NewTypedMessage(r.session.Domain(), nonce, from, functionSignature)
		if _, err := metatx.VerifySigner(message, signature.Bytes()); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	submission := r.submitter.Submit(r.ctx, &relay.Request{
		From:              from,
		FunctionSignature: functionSignature,
		Signature:         signature,
	})
	r.tracker.Track(submission)

	logger := r.logger.With(zap.String("submission_id", submission.ID), zap.Stringer("from", from))

	select {
	case event := <-submission.Events():
		if event.State == relay.SubmissionSubmitted {
			logger.Info("relay submitted", zap.String("tx_hash", event.Hash))
			c.JSON(http.StatusAccepted, relayResponse{ID: submission.ID, Hash: event.Hash})
			return
		}

		logger.Info("relay failed", zap.Error(event.Err))
		c.JSON(http.StatusUnprocessableEntity, errorResponse{
			ID:            submission.ID,
			Error:         event.Err.Error(),
			NonceMismatch: metatx.IsNonceMismatch(event.Err),
		})

	case <-c.Request.Context().Done():
		logger.Debug("client went away before submission, relay continues")
	}
}

func (r *Relayer) handleGetRelay(c *gin.Context) {
	submission, err := r.tracker.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	response := submissionResponse{
		ID:    submission.ID,
		State: submission.State().String(),
		Hash:  submission.Hash(),
	}
	if err := submission.Err(); err != nil {
		response.Error = err.Error()
	}
	if gasLimit, gasPrice := submission.Gas(); gasPrice != nil {
		response.GasLimit = gasLimit
		response.GasPrice = gasPrice.String()
	}

	c.JSON(http.StatusOK, response)
}
