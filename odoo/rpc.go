package odoo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
)

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is a fault returned by the Odoo server.
type RPCError struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    RPCErrorData `json:"data"`
}

type RPCErrorData struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	message := strings.TrimSpace(e.Data.Message)
	if message == "" {
		message = e.Message
	}
	if e.Data.Name != "" {
		return fmt.Sprintf("odoo rpc error: %s (%s)", message, e.Data.Name)
	}
	return fmt.Sprintf("odoo rpc error: %s", message)
}

// Missing reports whether the fault means the record does not exist.
func (e *RPCError) Missing() bool {
	return strings.Contains(e.Data.Name, "MissingError")
}

var requestID atomic.Int64

// call posts one JSON-RPC request to /jsonrpc and decodes the result into out.
func (c *Client) call(ctx context.Context, service, method string, args []any, out any) error {
	request := rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      requestID.Add(1),
	}

	var response rpcResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/jsonrpc")
	if err != nil {
		return fmt.Errorf("odoo %s.%s: %w", service, method, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return fmt.Errorf("odoo %s.%s: status %d", service, method, resp.StatusCode())
	}
	if response.Error != nil {
		return fmt.Errorf("odoo %s.%s: %w", service, method, response.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(response.Result, out); err != nil {
		return fmt.Errorf("decode odoo %s.%s result: %w", service, method, err)
	}
	return nil
}

// executeKW runs a model method as the authenticated user.
func (c *Client) executeKW(ctx context.Context, model, method string, args []any, kwargs map[string]any, out any) error {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return c.call(ctx, "object", "execute_kw", []any{
		c.cfg.DB, c.uid, c.cfg.Password, model, method, args, kwargs,
	}, out)
}

// many2oneID reads a many2one value: false, an id, or [id, display_name].
func many2oneID(raw json.RawMessage) int64 {
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err == nil && len(pair) > 0 {
		if err := json.Unmarshal(pair[0], &id); err == nil {
			return id
		}
	}
	return 0
}

// createdID reads the result of create, which is an id or a list of ids.
func createdID(raw json.RawMessage) (int64, error) {
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err == nil && len(ids) > 0 {
		return ids[0], nil
	}
	return 0, fmt.Errorf("unexpected create result %s", string(raw))
}
