// Package discovery captures the two address records the devnet bootstrap
// depends on: the bootnode's enode for execution-layer discovery and node 0's
// ENR for consensus-layer discovery.
package discovery

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

const (
	// EnodePrefix marks an execution-layer discovery record.
	EnodePrefix = "enode://"
	// ENRPrefix marks a consensus-layer discovery record.
	ENRPrefix = "enr:"
)

// Record is a single-assignment cell for a discovery address. It is written
// exactly once by node 0's bootstrap path and read by every later node.
type Record struct {
	mu  sync.Mutex
	val string
	set bool
}

// Set stores the value. Setting twice is a programming error and is rejected.
func (r *Record) Set(v string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.set {
		return fmt.Errorf("record already set to %q", r.val)
	}
	r.val = v
	r.set = true
	return nil
}

// Get returns the value and whether it has been set.
func (r *Record) Get() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.val, r.set
}

// Coordinator polls other processes' output for discovery records, bounded by
// per-record timeouts instead of fixed startup sleeps.
type Coordinator struct {
	logger *zap.Logger
	client *http.Client
}

func NewCoordinator(logger *zap.Logger) *Coordinator {
	return &Coordinator{
		logger: logger.With(zap.String("component", "discovery")),
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func attempts(timeout, interval time.Duration) uint {
	if interval <= 0 {
		interval = time.Second
	}
	n := timeout / interval
	if n < 1 {
		n = 1
	}
	return uint(n)
}

// AwaitEnode scans the bootnode's log until a line carrying an enode record
// appears, polling up to the timeout. Failure is fatal to the whole run:
// every execution client needs this record.
func (c *Coordinator) AwaitEnode(ctx context.Context, logPath string, timeout, interval time.Duration) (string, error) {
	var enode string
	err := retry.Do(
		func() error {
			v, err := scanForPrefix(logPath, EnodePrefix)
			if err != nil {
				return err
			}
			enode = v
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts(timeout, interval)),
		retry.Delay(interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("bootnode did not publish an enode record within %s: %w", timeout, err)
	}
	c.logger.Info("captured bootnode enode", zap.String("enode", enode))
	return enode, nil
}

// scanForPrefix returns the first line of the file starting with the prefix.
func scanForPrefix(path, prefix string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, prefix) {
			return line, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to scan %s: %w", path, err)
	}
	return "", fmt.Errorf("no line with prefix %q in %s", prefix, path)
}

// identityResponse mirrors the beacon node's /eth/v1/node/identity body.
type identityResponse struct {
	Data struct {
		ENR string `json:"enr"`
	} `json:"data"`
}

// AwaitENR polls a beacon node's identity endpoint until it yields a valid
// ENR, polling up to the timeout. A response without the expected prefix is
// unrecoverable: the endpoint answered but the record is malformed.
func (c *Coordinator) AwaitENR(ctx context.Context, url string, timeout, interval time.Duration) (string, error) {
	var enr string
	err := retry.Do(
		func() error {
			v, err := c.fetchENR(ctx, url)
			if err != nil {
				return err
			}
			if !strings.HasPrefix(v, ENRPrefix) {
				return retry.Unrecoverable(fmt.Errorf("identity endpoint returned malformed record %q", v))
			}
			enr = v
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts(timeout, interval)),
		retry.Delay(interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("beacon node did not publish an ENR within %s: %w", timeout, err)
	}
	c.logger.Info("captured bootstrap ENR", zap.String("enr", enr))
	return enr, nil
}

func (c *Coordinator) fetchENR(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build identity request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity endpoint returned status %d", resp.StatusCode)
	}

	var body identityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode identity response: %w", err)
	}
	if body.Data.ENR == "" {
		return "", fmt.Errorf("identity response carries no enr field")
	}
	return body.Data.ENR, nil
}
