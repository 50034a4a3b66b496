// Package pinata is a remote.BlobStore backed by the Pinata IPFS pinning API.
//
// Uploads go to POST /pinning/pinFileToIPFS with the blob name recorded as
// pin metadata, so Find can look bundles up by name through /data/pinList.
// Downloads go through the configured IPFS gateway.
//
// Authentication uses a JWT when one is configured; its exp claim is checked
// locally before every request so an expired token fails fast with
// remote.ErrCredentials. Otherwise the API key / secret header pair is sent.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/remote"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultAPIURL     = "https://api.pinata.cloud"
	DefaultGatewayURL = "https://gateway.pinata.cloud/ipfs/"

	pinListLimit = 100
	errBodyLimit = 512
)

type Options struct {
	APIURL     string
	GatewayURL string
	JWT        string
	APIKey     string
	SecretKey  string
	HTTPClient *http.Client
}

type Client struct {
	http       *http.Client
	apiURL     string
	gatewayURL string
	jwt        string
	apiKey     string
	secretKey  string
	now        func() time.Time
}

// New validates opts and builds a client. Either a JWT or both API key and
// secret are required.
func New(opts Options) (*Client, error) {
	if opts.JWT == "" && (opts.APIKey == "" || opts.SecretKey == "") {
		return nil, fmt.Errorf("pinata: %w", remote.ErrCredentials)
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.GatewayURL == "" {
		opts.GatewayURL = DefaultGatewayURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	gateway := opts.GatewayURL
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return &Client{
		http:       opts.HTTPClient,
		apiURL:     strings.TrimSuffix(opts.APIURL, "/"),
		gatewayURL: gateway,
		jwt:        opts.JWT,
		apiKey:     opts.APIKey,
		secretKey:  opts.SecretKey,
		now:        time.Now,
	}, nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.jwt == "" {
		req.Header.Set("pinata_api_key", c.apiKey)
		req.Header.Set("pinata_secret_api_key", c.secretKey)
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.jwt, claims); err != nil {
		return fmt.Errorf("pinata jwt: %w: %w", remote.ErrCredentials, err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("pinata jwt: %w: %w", remote.ErrCredentials, err)
	}
	if exp != nil && !c.now().Before(exp.Time) {
		return fmt.Errorf("pinata jwt expired at %s: %w", exp.Time.Format(time.RFC3339), remote.ErrCredentials)
	}

	req.Header.Set("Authorization", "Bearer "+c.jwt)
	return nil
}

func (c *Client) do(req *http.Request, out any) error {
	if err := c.authorize(req); err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pinata %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(req, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("pinata %s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func statusError(req *http.Request, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
	err := fmt.Errorf("pinata %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", common.ErrNotFound, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", remote.ErrCredentials, err)
	}
	return err
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

func (c *Client) Upload(ctx context.Context, name string, data []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	meta, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return "", err
	}
	if err := w.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out pinResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.IpfsHash == "" {
		return "", errors.New("pinata: upload response without IpfsHash")
	}
	return out.IpfsHash, nil
}

func (c *Client) Unpin(ctx context.Context, contentID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.apiURL+"/pinning/unpin/"+url.PathEscape(contentID), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

type pinListResponse struct {
	Count int `json:"count"`
	Rows  []struct {
		IpfsPinHash string    `json:"ipfs_pin_hash"`
		DatePinned  time.Time `json:"date_pinned"`
		Metadata    struct {
			Name string `json:"name"`
		} `json:"metadata"`
	} `json:"rows"`
}

// Find queries pinned blobs by metadata name. Pinata matches names loosely,
// so rows are filtered to the exact name here.
func (c *Client) Find(ctx context.Context, name string) ([]remote.Pin, error) {
	q := url.Values{}
	q.Set("status", "pinned")
	q.Set("metadata[name]", name)
	q.Set("pageLimit", fmt.Sprint(pinListLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/data/pinList?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var out pinListResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	pins := make([]remote.Pin, 0, len(out.Rows))
	for _, row := range out.Rows {
		if row.Metadata.Name != name || row.IpfsPinHash == "" {
			continue
		}
		pins = append(pins, remote.Pin{Name: row.Metadata.Name, ContentID: row.IpfsPinHash, CreatedAt: row.DatePinned})
	}
	sort.SliceStable(pins, func(i, j int) bool { return pins[i].CreatedAt.After(pins[j].CreatedAt) })
	return pins, nil
}

// Fetch downloads a blob from the gateway. Gateways are public, so no
// credentials are sent.
func (c *Client) Fetch(ctx context.Context, contentID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gatewayURL+url.PathEscape(contentID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pinata gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(req, resp)
	}
	return io.ReadAll(resp.Body)
}
