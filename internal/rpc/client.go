// Package rpc is the HTTP JSON-RPC transport behind the workflow
// engine. It speaks to a node-side gateway exposing the secureops_*
// method set, adapting the engine's canonical-JSON call arguments to
// the wire and contract records back from it.
package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/PracticalParticle/secureops/internal/chain"
	"github.com/PracticalParticle/secureops/internal/optype"
)

// DefaultTimeout bounds a single RPC round-trip.
const DefaultTimeout = 30 * time.Second

// Client implements the engine's chain surface over JSON-RPC 2.0.
type Client struct {
	endpoint string
	http     *http.Client
	nextID   atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for the gateway at endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Data carries the revert reason for execution failures.
	Data string `json:"data,omitempty"`
}

// Gateway error codes, mirrored from the node-side adapter.
const (
	codeContractNotFound = -32001
	codeExecutionRevert  = -32015
)

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%s: %w", method, chain.ErrNetworkTimeout)
		}
		return fmt.Errorf("%s: %w: %v", method, chain.ErrNetworkTimeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: gateway returned %s: %w", method, resp.Status, chain.ErrNetworkTimeout)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, chain.ErrNetworkTimeout)
	}

	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return fmt.Errorf("%s: malformed response: %w", method, err)
	}
	if rr.Error != nil {
		return mapRPCError(method, rr.Error)
	}
	if result != nil {
		if err := json.Unmarshal(rr.Result, result); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

func mapRPCError(method string, e *rpcError) error {
	switch e.Code {
	case codeContractNotFound:
		return fmt.Errorf("%s: %w", method, chain.ErrContractNotFound)
	case codeExecutionRevert:
		reason := e.Data
		if reason == "" {
			reason = e.Message
		}
		return fmt.Errorf("%s: %w", method, &chain.RevertError{Reason: reason})
	default:
		return fmt.Errorf("%s: gateway error %d: %s", method, e.Code, e.Message)
	}
}

// ChainID implements chain.Reader.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var id uint64
	if err := c.call(ctx, "secureops_chainId", nil, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// GasPrice implements chain.Reader.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	var s string
	if err := c.call(ctx, "secureops_gasPrice", nil, &s); err != nil {
		return nil, err
	}
	price, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("secureops_gasPrice: malformed price %q", s)
	}
	return price, nil
}

type readStateParams struct {
	Contract string `json:"contract"`
	Selector string `json:"selector"`
	Args     string `json:"args,omitempty"`
}

// ReadState implements chain.Reader.
func (c *Client) ReadState(ctx context.Context, contract chain.Address, selector chain.Selector, args []byte) ([]byte, error) {
	var encoded string
	if err := c.call(ctx, "secureops_readState", readStateParams{
		Contract: contract.String(),
		Selector: selector.String(),
		Args:     base64.StdEncoding.EncodeToString(args),
	}, &encoded); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("secureops_readState: malformed result: %w", err)
	}
	return data, nil
}

type submitParams struct {
	Contract string `json:"contract"`
	Selector string `json:"selector"`
	Args     string `json:"args"`
	From     string `json:"from"`
}

// Submit implements chain.Writer.
func (c *Client) Submit(ctx context.Context, contract chain.Address, selector chain.Selector, args []byte, from chain.Address) (chain.TxHandle, error) {
	var handle string
	if err := c.call(ctx, "secureops_submit", submitParams{
		Contract: contract.String(),
		Selector: selector.String(),
		Args:     base64.StdEncoding.EncodeToString(args),
		From:     from.String(),
	}, &handle); err != nil {
		return "", err
	}
	return chain.TxHandle(handle), nil
}

type receiptJSON struct {
	Success     bool   `json:"success"`
	Reason      string `json:"reason,omitempty"`
	OperationID uint64 `json:"operation_id,omitempty"`
	ConfirmedAt int64  `json:"confirmed_at"`
}

// WaitForConfirmation implements chain.Writer.
func (c *Client) WaitForConfirmation(ctx context.Context, h chain.TxHandle) (chain.Receipt, error) {
	var rj receiptJSON
	if err := c.call(ctx, "secureops_waitForConfirmation", map[string]string{"handle": string(h)}, &rj); err != nil {
		return chain.Receipt{}, err
	}
	return chain.Receipt{
		TxHandle:    h,
		Success:     rj.Success,
		Reason:      rj.Reason,
		OperationID: rj.OperationID,
		ConfirmedAt: time.Unix(rj.ConfirmedAt, 0),
	}, nil
}

type recordJSON struct {
	OperationID   uint64          `json:"operation_id"`
	OperationType string          `json:"operation_type"`
	Requester     string          `json:"requester"`
	Target        string          `json:"target"`
	Value         string          `json:"value"`
	ReleaseTime   int64           `json:"release_time"`
	Status        string          `json:"status"`
	Params        json.RawMessage `json:"params,omitempty"`
	ExecutionType string          `json:"execution_type"`
}

// ReadOperation implements workflow.ContractClient.
func (c *Client) ReadOperation(ctx context.Context, contract chain.Address, operationID uint64) (optype.OperationRecord, error) {
	var rj *recordJSON
	err := c.call(ctx, "secureops_readOperation", map[string]any{
		"contract":     contract.String(),
		"operation_id": operationID,
	}, &rj)
	if err != nil {
		return optype.OperationRecord{}, err
	}
	if rj == nil {
		// Unknown id reads as empty storage.
		return optype.OperationRecord{}, nil
	}
	return decodeRecord(rj)
}

// ListOperations implements workflow.ContractClient.
func (c *Client) ListOperations(ctx context.Context, contract chain.Address) ([]optype.OperationRecord, error) {
	var rjs []recordJSON
	err := c.call(ctx, "secureops_listOperations", map[string]string{"contract": contract.String()}, &rjs)
	if err != nil {
		return nil, err
	}
	recs := make([]optype.OperationRecord, 0, len(rjs))
	for i := range rjs {
		rec, err := decodeRecord(&rjs[i])
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func decodeRecord(rj *recordJSON) (optype.OperationRecord, error) {
	var rec optype.OperationRecord
	var err error

	rec.OperationID = rj.OperationID
	rec.ReleaseTime = rj.ReleaseTime

	if rj.OperationType != "" {
		if rec.TypeID, err = optype.ParseTypeID(rj.OperationType); err != nil {
			return rec, fmt.Errorf("record %d: %w", rj.OperationID, err)
		}
	}
	if rj.Requester != "" {
		if rec.Requester, err = chain.ParseAddress(rj.Requester); err != nil {
			return rec, fmt.Errorf("record %d: %w", rj.OperationID, err)
		}
	}
	if rj.Target != "" {
		if rec.Target, err = chain.ParseAddress(rj.Target); err != nil {
			return rec, fmt.Errorf("record %d: %w", rj.OperationID, err)
		}
	}
	if rj.Value != "" {
		v, ok := new(big.Int).SetString(rj.Value, 10)
		if !ok {
			return rec, fmt.Errorf("record %d: malformed value %q", rj.OperationID, rj.Value)
		}
		rec.Value = v
	}
	if rec.Status, err = parseStatus(rj.Status); err != nil {
		return rec, fmt.Errorf("record %d: %w", rj.OperationID, err)
	}
	if rec.ExecutionType, err = parseExecutionType(rj.ExecutionType); err != nil {
		return rec, fmt.Errorf("record %d: %w", rj.OperationID, err)
	}
	if len(rj.Params) > 0 {
		dec := json.NewDecoder(bytes.NewReader(rj.Params))
		dec.UseNumber()
		if err := dec.Decode(&rec.Params); err != nil {
			return rec, fmt.Errorf("record %d: decode params: %w", rj.OperationID, err)
		}
	}
	return rec, nil
}

func parseStatus(s string) (optype.Status, error) {
	switch s {
	case "", "UNDEFINED":
		return optype.StatusUndefined, nil
	case "PENDING":
		return optype.StatusPending, nil
	case "COMPLETED":
		return optype.StatusCompleted, nil
	case "CANCELLED":
		return optype.StatusCancelled, nil
	case "FAILED":
		return optype.StatusFailed, nil
	case "REJECTED":
		return optype.StatusRejected, nil
	default:
		return optype.StatusUndefined, fmt.Errorf("unknown status %q", s)
	}
}

func parseExecutionType(s string) (optype.ExecutionType, error) {
	switch s {
	case "", "NONE":
		return optype.ExecNone, nil
	case "STANDARD":
		return optype.ExecStandard, nil
	case "META":
		return optype.ExecMeta, nil
	default:
		return optype.ExecNone, fmt.Errorf("unknown execution type %q", s)
	}
}
