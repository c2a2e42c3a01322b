// Package helpers contains shared fixtures for the contacts API integration tests.
package helpers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/onsi/gomega"

	"github.com/stacklok/contacts-server/internal/app"
	"github.com/stacklok/contacts-server/internal/config"
)

// ServerTestHelper manages the contacts server lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	cfg        *config.Config
	baseURL    string
	httpClient *http.Client
	app        *app.ContactsApp
}

// NewServerTestHelper creates a helper for a server backed by the database at dbURL
func NewServerTestHelper(ctx context.Context, dbURL string) *ServerTestHelper {
	maxAttempts := 5
	return &ServerTestHelper{
		ctx: ctx,
		cfg: &config.Config{
			Server:  config.ServerConfig{Address: "127.0.0.1:0"},
			Storage: config.StorageConfig{Type: config.StorageTypeDatabase},
			Database: config.DatabaseConfig{
				URL: dbURL,
			},
			Readiness: config.ReadinessConfig{
				MaxAttempts: &maxAttempts,
				Delay:       "200ms",
			},
		},
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// StartServer builds the application and starts it in the background
func (s *ServerTestHelper) StartServer() error {
	contactsApp, err := app.NewContactsApp(s.ctx, app.WithConfig(s.cfg))
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	s.app = contactsApp

	go func() {
		if err := contactsApp.Start(); err != nil {
			// The test fails when it tries to connect
			fmt.Fprintf(os.Stderr, "Server start failed: %v\n", err)
		}
	}()

	return nil
}

// StopServer gracefully stops the server
func (s *ServerTestHelper) StopServer() error {
	if s.app != nil {
		return s.app.Stop(5 * time.Second)
	}
	return nil
}

// WaitForServerReady waits until the server is bound and /readiness answers 200
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		addr := s.app.Addr()
		if addr == "" {
			return fmt.Errorf("server not listening yet")
		}
		s.baseURL = "http://" + addr

		resp, err := s.httpClient.Get(s.baseURL + "/readiness")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 250*time.Millisecond).Should(gomega.Succeed(), "Server should be ready")
}

// Get makes a GET request to path
func (s *ServerTestHelper) Get(path string) (*http.Response, error) {
	return s.httpClient.Get(s.baseURL + path)
}

// ListContacts makes a GET request to /api/contacts
func (s *ServerTestHelper) ListContacts() (*http.Response, error) {
	return s.Get("/api/contacts")
}

// CreateContact makes a POST request to /api/create_contact
func (s *ServerTestHelper) CreateContact(body string) (*http.Response, error) {
	return s.do(http.MethodPost, "/api/create_contact", body)
}

// UpdateContact makes a PATCH request to /api/update_contact/{id}
func (s *ServerTestHelper) UpdateContact(id, body string) (*http.Response, error) {
	return s.do(http.MethodPatch, "/api/update_contact/"+id, body)
}

// DeleteContact makes a DELETE request to /api/delete_contact/{id}
func (s *ServerTestHelper) DeleteContact(id string) (*http.Response, error) {
	return s.do(http.MethodDelete, "/api/delete_contact/"+id, "")
}

// GetBaseURL returns the base URL of the server
func (s *ServerTestHelper) GetBaseURL() string {
	return s.baseURL
}

func (s *ServerTestHelper) do(method, path, body string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(s.ctx, method, s.baseURL+path, bytes.NewBufferString(body))
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.httpClient.Do(req)
}
