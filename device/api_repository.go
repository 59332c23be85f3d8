package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// APIRepository reads and updates the device registry of a remote sensor API.
type APIRepository struct {
	client *http.Client

	baseURL string
	apiKey  string
}

func NewAPIRepository(client *http.Client, baseURL, apiKey string) *APIRepository {
	return &APIRepository{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (r *APIRepository) List(ctx context.Context, offset int, limit int) (*Collection, error) {
	q := url.Values{}
	if limit > 0 {
		q.Add("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Add("offset", strconv.Itoa(offset))
	}

	var collection Collection
	if err := r.do(ctx, http.MethodGet, "/devices?"+q.Encode(), nil, &collection); err != nil {
		return nil, err
	}

	return &collection, nil
}

func (r *APIRepository) Get(ctx context.Context, address string) (*Device, error) {
	var device Device
	if err := r.do(ctx, http.MethodGet, "/devices/"+url.PathEscape(address), nil, &device); err != nil {
		return nil, err
	}

	return &device, nil
}

// Register is not offered by the remote API; devices register themselves when they report.
func (r *APIRepository) Register(ctx context.Context, device *Device) error {
	return fmt.Errorf("register operation is not supported in APIRepository")
}

func (r *APIRepository) Rename(ctx context.Context, device *Device) error {
	if device == nil {
		return ErrNilDevice
	}

	return r.do(ctx, http.MethodPut, "/devices/"+url.PathEscape(device.Address), device, nil)
}

func (r *APIRepository) Delete(ctx context.Context, address string) error {
	return r.do(ctx, http.MethodDelete, "/devices/"+url.PathEscape(address), nil, nil)
}

func (r *APIRepository) IsReady() bool {
	if r.client == nil || r.baseURL == "" {
		return false
	}
	return true
}

func (r *APIRepository) Close() error {
	if r.client != nil {
		r.client = nil
	}

	return nil
}

func (r *APIRepository) do(ctx context.Context, method, path string, body any, out any) error {
	if !r.IsReady() {
		return ErrRepositoryNotReady
	}

	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, &payload)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func(resp *http.Response) {
		if err := resp.Body.Close(); err != nil {
			fmt.Printf("failed to close response body: %v\n", err)
		}
	}(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrDeviceNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("API returned non-2xx status: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ Repository = (*APIRepository)(nil)
