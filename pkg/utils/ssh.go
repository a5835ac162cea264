// Package utils holds small helpers shared across the CLI, currently
// remote command execution over SSH.
package utils

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHRunner handles SSH connections and command execution.
type SSHRunner struct {
	host       string
	user       string
	privateKey string
	client     *ssh.Client
}

// NewSSHRunner creates a new SSH runner.
func NewSSHRunner(host, user, privateKey string) *SSHRunner {
	return &SSHRunner{
		host:       host,
		user:       user,
		privateKey: privateKey,
	}
}

// Connect establishes the SSH connection.
func (r *SSHRunner) Connect(ctx context.Context) error {
	signer, err := ssh.ParsePrivateKey([]byte(r.privateKey))
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}

	config := &ssh.ClientConfig{
		User: r.user,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}

	dialer := net.Dialer{Timeout: config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:22", r.host))
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, r.host, config)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake failed: %w", err)
	}

	r.client = ssh.NewClient(c, chans, reqs)
	return nil
}

// Close closes the SSH connection.
func (r *SSHRunner) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Run executes a single command, streaming output to the terminal. The
// session is torn down when ctx is cancelled.
func (r *SSHRunner) Run(ctx context.Context, command string) error {
	session, err := r.client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	session.Stdout = os.Stdout
	session.Stderr = os.Stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		session.Close()
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("command failed: %w", err)
		}
		return nil
	}
}

// RunWithOutput executes a command and returns its stdout.
func (r *SSHRunner) RunWithOutput(ctx context.Context, command string) (string, error) {
	session, err := r.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stdout strings.Builder
	session.Stdout = io.MultiWriter(&stdout, os.Stdout)
	session.Stderr = os.Stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		session.Close()
		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("command failed: %w", err)
		}
		return stdout.String(), nil
	}
}
