package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"assetswap/native/trading"
)

type assetParam struct {
	Kind    string `json:"kind"`
	Address string `json:"address,omitempty"`
	Amount  string `json:"amount,omitempty"`
	TokenID string `json:"tokenId,omitempty"`
}

type createAskParams struct {
	Owner    string     `json:"owner"`
	Value    string     `json:"value,omitempty"`
	AssetOut assetParam `json:"assetOut"`
	AssetIn  assetParam `json:"assetIn"`
}

type removeAskParams struct {
	ID     uint64 `json:"id"`
	Caller string `json:"caller"`
}

type bidTokenParams struct {
	ID     uint64 `json:"id"`
	Bidder string `json:"bidder"`
	Amount string `json:"amount"`
}

type bidNativeParams struct {
	ID     uint64 `json:"id"`
	Bidder string `json:"bidder"`
	Value  string `json:"value"`
}

type bidNFTParams struct {
	ID      uint64 `json:"id"`
	Bidder  string `json:"bidder"`
	TokenID string `json:"tokenId"`
}

type getPairParams struct {
	ID uint64 `json:"id"`
}

type assetJSON struct {
	Kind    string `json:"kind"`
	Address string `json:"address"`
	Amount  string `json:"amount"`
	TokenID string `json:"tokenId,omitempty"`
}

type pairJSON struct {
	ID        uint64    `json:"id"`
	Owner     string    `json:"owner"`
	AssetOut  assetJSON `json:"assetOut"`
	AssetIn   assetJSON `json:"assetIn"`
	Price     string    `json:"price"`
	Finished  bool      `json:"finished"`
	CreatedAt int64     `json:"createdAt"`
}

func assetToJSON(a trading.AssetDescriptor) assetJSON {
	out := assetJSON{
		Kind:    a.Kind.String(),
		Address: common.Address(a.Address).Hex(),
		Amount:  "0",
	}
	if a.Amount != nil {
		out.Amount = a.Amount.String()
	}
	if a.TokenID != nil {
		out.TokenID = a.TokenID.String()
	}
	return out
}

func pairToJSON(p *trading.Pair) pairJSON {
	price := "0"
	if p.Price != nil {
		price = p.Price.String()
	}
	return pairJSON{
		ID:        p.ID,
		Owner:     common.Address(p.Owner).Hex(),
		AssetOut:  assetToJSON(p.AssetOut),
		AssetIn:   assetToJSON(p.AssetIn),
		Price:     price,
		Finished:  p.Finished,
		CreatedAt: p.CreatedAt,
	}
}

func parseAddress(value string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("invalid address %q", value)
	}
	return common.HexToAddress(trimmed), nil
}

// parseUint256 decodes a decimal string into a big integer, rejecting
// negatives and anything wider than 256 bits before the engine sees it.
func parseUint256(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return nil, fmt.Errorf("amount exceeds 256 bits")
	}
	return amount, nil
}

func parseKind(value string) (trading.AssetKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "native":
		return trading.KindNative, nil
	case "fungible", "token":
		return trading.KindFungible, nil
	case "nonfungible", "nft":
		return trading.KindNonFungible, nil
	default:
		return 0, fmt.Errorf("unknown asset kind %q", value)
	}
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

// rpcErrorFor maps an engine failure onto a JSON-RPC error and HTTP status.
// The sentinel message rides along as data so callers and tests can assert
// the specific reason.
func rpcErrorFor(err error) (int, int) {
	switch {
	case errors.Is(err, trading.ErrIDOutOfRange):
		return http.StatusNotFound, codeTradingNotFound
	case errors.Is(err, trading.ErrNotAskOwner):
		return http.StatusForbidden, codeTradingForbidden
	case errors.Is(err, trading.ErrAskFinished):
		return http.StatusConflict, codeTradingConflict
	case errors.Is(err, trading.ErrInvalidAmount),
		errors.Is(err, trading.ErrZeroAddress),
		errors.Is(err, trading.ErrIdenticalAddresses),
		errors.Is(err, trading.ErrAlreadyOwner),
		errors.Is(err, trading.ErrInvalidPairID),
		errors.Is(err, trading.ErrExcessiveAmount),
		errors.Is(err, trading.ErrIncorrectAmount),
		errors.Is(err, trading.ErrIncorrectTokenID),
		errors.Is(err, trading.ErrValueOutOfRange):
		return http.StatusBadRequest, codeTradingInvalidParams
	case errors.Is(err, trading.ErrTransferFailed),
		errors.Is(err, trading.ErrInsufficientAllowance),
		errors.Is(err, trading.ErrInsufficientBalance),
		errors.Is(err, trading.ErrInvalidTokenID),
		errors.Is(err, trading.ErrNotOwnerOrApproved):
		return http.StatusConflict, codeTradingConflict
	default:
		return http.StatusInternalServerError, codeTradingInternal
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, req *RPCRequest, method string, err error) {
	status, code := rpcErrorFor(err)
	s.metrics.Failure(method, err.Error())
	writeError(w, status, req.ID, code, "trading error", err.Error())
}

func (s *Server) handleCreateAsk(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	const method = "trading_createAsk"
	start := time.Now()
	defer s.metrics.ObserveLatency(method, start)
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params createAskParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	outKind, err := parseKind(params.AssetOut.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	inKind, err := parseKind(params.AssetIn.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	if outKind == trading.KindNative && inKind == trading.KindNative {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", "native/native pairs are not supported")
		return
	}

	// Attached-payment boundary rules: value is forbidden unless the out-leg
	// is native, in which case it defines the escrowed amount and must agree
	// with an explicitly supplied one.
	value := big.NewInt(0)
	if strings.TrimSpace(params.Value) != "" {
		value, err = parseUint256(params.Value)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
			return
		}
	}
	if outKind != trading.KindNative && value.Sign() != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", "value must be zero unless the out-leg is native")
		return
	}

	out, err := s.parseLeg(outKind, params.AssetOut, value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	in, err := s.parseLeg(inKind, params.AssetIn, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}

	pair, err := s.dispatchCreateAsk(owner, out, in)
	if err != nil {
		s.writeEngineError(w, req, method, err)
		return
	}
	s.metrics.AskCreated(pair.AssetOut.Kind.String(), pair.AssetIn.Kind.String())
	s.logger.Info("ask created", "pairId", pair.ID, "owner", params.Owner)
	writeResult(w, req.ID, pairToJSON(pair))
}

// parseLeg translates one kind-tagged parameter block into a descriptor. For
// a native out-leg the attached value defines the amount.
func (s *Server) parseLeg(kind trading.AssetKind, param assetParam, value *big.Int) (trading.AssetDescriptor, error) {
	switch kind {
	case trading.KindNative:
		if value != nil {
			if strings.TrimSpace(param.Amount) != "" {
				declared, err := parseUint256(param.Amount)
				if err != nil {
					return trading.AssetDescriptor{}, err
				}
				if declared.Cmp(value) != 0 {
					return trading.AssetDescriptor{}, fmt.Errorf("attached value %s does not match declared amount %s", value, declared)
				}
			}
			return trading.NativeAsset(value), nil
		}
		amount, err := parseUint256(param.Amount)
		if err != nil {
			return trading.AssetDescriptor{}, err
		}
		return trading.NativeAsset(amount), nil
	case trading.KindFungible:
		address, err := parseAddress(param.Address)
		if err != nil {
			return trading.AssetDescriptor{}, err
		}
		amount, err := parseUint256(param.Amount)
		if err != nil {
			return trading.AssetDescriptor{}, err
		}
		return trading.FungibleAsset(address, amount), nil
	case trading.KindNonFungible:
		address, err := parseAddress(param.Address)
		if err != nil {
			return trading.AssetDescriptor{}, err
		}
		tokenID, err := parseUint256(param.TokenID)
		if err != nil {
			return trading.AssetDescriptor{}, err
		}
		return trading.NonFungibleAsset(address, tokenID), nil
	default:
		return trading.AssetDescriptor{}, fmt.Errorf("unknown asset kind")
	}
}

// dispatchCreateAsk routes the descriptor pair to the engine entry point for
// its kind combination.
func (s *Server) dispatchCreateAsk(owner [20]byte, out, in trading.AssetDescriptor) (*trading.Pair, error) {
	switch {
	case out.Kind == trading.KindFungible && in.Kind == trading.KindFungible:
		return s.engine.CreateAskTokenToToken(owner, out.Address, out.Amount, in.Address, in.Amount)
	case out.Kind == trading.KindFungible && in.Kind == trading.KindNative:
		return s.engine.CreateAskTokenToNative(owner, out.Address, out.Amount, in.Amount)
	case out.Kind == trading.KindFungible && in.Kind == trading.KindNonFungible:
		return s.engine.CreateAskTokenToNFT(owner, out.Address, out.Amount, in.Address, in.TokenID)
	case out.Kind == trading.KindNative && in.Kind == trading.KindFungible:
		return s.engine.CreateAskNativeToToken(owner, out.Amount, in.Address, in.Amount)
	case out.Kind == trading.KindNative && in.Kind == trading.KindNonFungible:
		return s.engine.CreateAskNativeToNFT(owner, out.Amount, in.Address, in.TokenID)
	case out.Kind == trading.KindNonFungible && in.Kind == trading.KindFungible:
		return s.engine.CreateAskNFTToToken(owner, out.Address, out.TokenID, in.Address, in.Amount)
	case out.Kind == trading.KindNonFungible && in.Kind == trading.KindNative:
		return s.engine.CreateAskNFTToNative(owner, out.Address, out.TokenID, in.Amount)
	case out.Kind == trading.KindNonFungible && in.Kind == trading.KindNonFungible:
		return s.engine.CreateAskNFTToNFT(owner, out.Address, out.TokenID, in.Address, in.TokenID)
	default:
		return nil, fmt.Errorf("unsupported kind combination")
	}
}

func (s *Server) handleRemoveAsk(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	const method = "trading_removeAsk"
	start := time.Now()
	defer s.metrics.ObserveLatency(method, start)
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params removeAskParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	pair, err := s.engine.RemoveAsk(params.ID, caller)
	if err != nil {
		s.writeEngineError(w, req, method, err)
		return
	}
	s.metrics.AskRemoved()
	s.logger.Info("ask removed", "pairId", pair.ID, "caller", params.Caller)
	writeResult(w, req.ID, pairToJSON(pair))
}

func (s *Server) handleBidToken(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	const method = "trading_bidToken"
	start := time.Now()
	defer s.metrics.ObserveLatency(method, start)
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params bidTokenParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	bidder, err := parseAddress(params.Bidder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parseUint256(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	pair, err := s.engine.BidToken(params.ID, bidder, amount)
	if err != nil {
		s.writeEngineError(w, req, method, err)
		return
	}
	s.metrics.BidExecuted(pair.AssetIn.Kind.String())
	s.logger.Info("bid executed", "pairId", pair.ID, "bidder", params.Bidder)
	writeResult(w, req.ID, pairToJSON(pair))
}

func (s *Server) handleBidNative(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	const method = "trading_bidNative"
	start := time.Now()
	defer s.metrics.ObserveLatency(method, start)
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params bidNativeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	bidder, err := parseAddress(params.Bidder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	value, err := parseUint256(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	pair, err := s.engine.BidNative(params.ID, bidder, value)
	if err != nil {
		s.writeEngineError(w, req, method, err)
		return
	}
	s.metrics.BidExecuted(pair.AssetIn.Kind.String())
	s.logger.Info("bid executed", "pairId", pair.ID, "bidder", params.Bidder)
	writeResult(w, req.ID, pairToJSON(pair))
}

func (s *Server) handleBidNFT(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	const method = "trading_bidNFT"
	start := time.Now()
	defer s.metrics.ObserveLatency(method, start)
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params bidNFTParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	bidder, err := parseAddress(params.Bidder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	tokenID, err := parseUint256(params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	pair, err := s.engine.BidNFT(params.ID, bidder, tokenID)
	if err != nil {
		s.writeEngineError(w, req, method, err)
		return
	}
	s.metrics.BidExecuted(pair.AssetIn.Kind.String())
	s.logger.Info("bid executed", "pairId", pair.ID, "bidder", params.Bidder)
	writeResult(w, req.ID, pairToJSON(pair))
}

func (s *Server) handleGetPair(w http.ResponseWriter, req *RPCRequest) {
	const method = "trading_getPair"
	start := time.Now()
	defer s.metrics.ObserveLatency(method, start)
	var params getPairParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTradingInvalidParams, "invalid_params", err.Error())
		return
	}
	pair, err := s.engine.GetPairByID(params.ID)
	if err != nil {
		s.writeEngineError(w, req, method, err)
		return
	}
	writeResult(w, req.ID, pairToJSON(pair))
}

func (s *Server) handlePriceDecimal(w http.ResponseWriter, req *RPCRequest) {
	writeResult(w, req.ID, s.engine.PriceDecimal().String())
}
