// Package ledgerchat provides a client for the ledgerchat API. It signs
// operations with the caller's Ed25519 key and derives every account address
// locally.
package ledgerchat

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/eldtechnologies/ledgerchat/internal/address"
	"github.com/eldtechnologies/ledgerchat/internal/crypto"
	"github.com/eldtechnologies/ledgerchat/internal/models"
)

// Client is a ledgerchat API client.
type Client struct {
	BaseURL    string
	ConfigDir  string
	ProgramID  address.Address // fetched from /api when zero
	Identity   address.Address
	PrivateKey ed25519.PrivateKey
	HTTPClient *http.Client
}

// Config is the on-disk identity file.
type Config struct {
	Identity string `json:"identity"`
}

// NewClient creates a new client and loads any saved identity.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	configDir := os.Getenv("LEDGERCHAT_CONFIG")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".ledgerchat")
	}

	c := &Client{
		BaseURL:    baseURL,
		ConfigDir:  configDir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	_ = c.LoadConfig()
	return c
}

// LoadConfig loads the identity from disk.
func (c *Client) LoadConfig() error {
	keyData, err := os.ReadFile(filepath.Join(c.ConfigDir, "private.key"))
	if err != nil {
		return err
	}
	priv, err := crypto.ParsePrivateKey(string(bytes.TrimSpace(keyData)))
	if err != nil {
		return err
	}
	return c.SetKey(priv)
}

// SaveConfig saves the identity to disk.
func (c *Client) SaveConfig() error {
	if err := os.MkdirAll(c.ConfigDir, 0700); err != nil {
		return err
	}

	data, _ := json.MarshalIndent(Config{Identity: c.Identity.String()}, "", "  ")
	if err := os.WriteFile(filepath.Join(c.ConfigDir, "identity.json"), data, 0600); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.ConfigDir, "private.key"), []byte(crypto.EncodeSeed(c.PrivateKey)), 0600)
}

// GenerateKeypair replaces the client identity with a fresh one.
func (c *Client) GenerateKeypair() error {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	return c.SetKey(priv)
}

// SetKey sets the signing key and the identity derived from it.
func (c *Client) SetKey(priv ed25519.PrivateKey) error {
	id, err := crypto.Identity(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return err
	}
	c.PrivateKey = priv
	c.Identity = id
	return nil
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string // operation error code, empty for transport-level failures
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("ledgerchat error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("ledgerchat error %d: %s", e.Status, e.Message)
}

// signRequest creates authentication headers for a request.
func (c *Client) signRequest(body []byte) http.Header {
	nonce := crypto.NewNonce()
	timestamp := time.Now().UnixMilli()

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set(crypto.HeaderSigner, c.Identity.String())
	headers.Set(crypto.HeaderNonce, nonce)
	headers.Set(crypto.HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	headers.Set(crypto.HeaderSignature, crypto.Sign(c.PrivateKey, body, nonce, timestamp))
	return headers
}

// doRequest performs an HTTP request and decodes a JSON response into out.
func (c *Client) doRequest(method, path string, payload, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return err
		}
		if c.PrivateKey == nil {
			return fmt.Errorf("no identity: run keygen first")
		}
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header = c.signRequest(body)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		json.Unmarshal(respBody, &errResp)
		return &APIError{Status: resp.StatusCode, Code: errResp.Code, Message: errResp.Error}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// Health returns the server health report.
func (c *Client) Health() (map[string]interface{}, error) {
	var resp map[string]interface{}
	if err := c.doRequest("GET", "/health", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Info describes the server deployment.
type Info struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	ProgramID   string `json:"program_id"`
	MaxMessages int    `json:"max_messages"`
}

// Info fetches the deployment info and caches its program id.
func (c *Client) Info() (*Info, error) {
	var info Info
	if err := c.doRequest("GET", "/api", nil, &info); err != nil {
		return nil, err
	}
	programID, err := address.Parse(info.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("server program id: %w", err)
	}
	c.ProgramID = programID
	return &info, nil
}

func (c *Client) program() (address.Address, error) {
	if c.ProgramID.IsZero() {
		if _, err := c.Info(); err != nil {
			return address.Zero, err
		}
	}
	return c.ProgramID, nil
}

// AccountState is one written account in a receipt.
type AccountState struct {
	Address string          `json:"address"`
	Kind    models.Kind     `json:"kind"`
	Account json.RawMessage `json:"account"`
}

// Receipt is the result of an accepted operation.
type Receipt struct {
	ID        string         `json:"id"`
	Operation string         `json:"operation"`
	Signer    string         `json:"signer"`
	Accounts  []AccountState `json:"accounts"`
}

// AccountResponse is a fetched account. Decode Account with DecodeAccount.
type AccountResponse struct {
	Address string          `json:"address"`
	Kind    models.Kind     `json:"kind"`
	Account json.RawMessage `json:"account"`
}

// Account fetches the account stored at addr.
func (c *Client) Account(addr address.Address) (*AccountResponse, error) {
	var resp AccountResponse
	if err := c.doRequest("GET", "/accounts/"+addr.String(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DecodeAccount decodes the account body into the struct matching its kind.
func DecodeAccount(resp *AccountResponse) (interface{}, error) {
	var dst interface{}
	switch resp.Kind {
	case models.KindContact:
		dst = &models.Contact{}
	case models.KindDirectConversation:
		dst = &models.DirectConversation{}
	case models.KindGroup:
		dst = &models.Group{}
	case models.KindGroupContact:
		dst = &models.GroupContact{}
	default:
		return nil, fmt.Errorf("unknown account kind %q", resp.Kind)
	}
	if err := json.Unmarshal(resp.Account, dst); err != nil {
		return nil, err
	}
	return dst, nil
}
