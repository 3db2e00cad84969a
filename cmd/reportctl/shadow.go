package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const generatePath = "/api/reports/generate"

type shadowTarget struct {
	Name     string          `json:"name"`
	Request  json.RawMessage `json:"request"`
	Critical bool            `json:"critical"`
}

type shadowTargets struct {
	Targets []shadowTarget `json:"targets"`
}

type shadowComparison struct {
	Target          shadowTarget
	CurrentStatus   int
	LegacyStatus    int
	StatusMatch     bool
	BodyMatch       bool
	Err             error
	CurrentDuration time.Duration
	LegacyDuration  time.Duration
}

func (c shadowComparison) diverged() bool {
	return c.Err != nil || !c.StatusMatch || !c.BodyMatch
}

type shadowCmd struct {
	current     string
	legacy      string
	targetsPath string
	token       string
	timeout     time.Duration
}

func newShadowCmd() *cobra.Command {
	sc := &shadowCmd{}
	cmd := &cobra.Command{
		Use:   "shadow",
		Short: "Replay report requests against this service and the legacy one and diff the results",
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.current, "current", "http://localhost:8088", "Base URL of this report service")
	cmd.Flags().StringVar(&sc.legacy, "legacy", "http://localhost:8080", "Base URL of the legacy report service")
	cmd.Flags().StringVar(&sc.targetsPath, "targets", "", "Path to JSON targets file")
	cmd.Flags().StringVar(&sc.token, "token", "", "Bearer token sent to both services")
	cmd.Flags().DurationVar(&sc.timeout, "timeout", 10*time.Second, "HTTP client timeout")

	_ = cmd.MarkFlagRequired("targets")

	return cmd
}

func (sc *shadowCmd) run(cmd *cobra.Command, _ []string) error {
	targets, err := loadShadowTargets(sc.targetsPath)
	if err != nil {
		return fmt.Errorf("load targets: %w", err)
	}

	client := &http.Client{Timeout: sc.timeout}
	results := make([]shadowComparison, 0, len(targets))
	breaking, optional := 0, 0
	for _, t := range targets {
		res := sc.compare(cmd.Context(), client, t)
		if res.diverged() {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	out := cmd.OutOrStdout()
	printShadowReport(out, results)
	fmt.Fprintf(out, "Breaking diffs: %d, Optional diffs: %d\n", breaking, optional)
	if breaking > 0 {
		return fmt.Errorf("%d critical targets diverged", breaking)
	}
	return nil
}

func loadShadowTargets(path string) ([]shadowTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg shadowTargets
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func (sc *shadowCmd) compare(ctx context.Context, client *http.Client, tgt shadowTarget) shadowComparison {
	comp := shadowComparison{Target: tgt}

	currentStatus, currentBody, currentDur, err := sc.post(ctx, client, sc.current, tgt.Request)
	comp.CurrentDuration = currentDur
	if err != nil {
		comp.Err = fmt.Errorf("current request failed: %w", err)
		return comp
	}
	legacyStatus, legacyBody, legacyDur, err := sc.post(ctx, client, sc.legacy, tgt.Request)
	comp.LegacyDuration = legacyDur
	if err != nil {
		comp.Err = fmt.Errorf("legacy request failed: %w", err)
		return comp
	}

	comp.CurrentStatus = currentStatus
	comp.LegacyStatus = legacyStatus
	comp.StatusMatch = currentStatus == legacyStatus
	// Error bodies differ in shape between the two services; only successes are diffed.
	if currentStatus != http.StatusOK || legacyStatus != http.StatusOK {
		comp.BodyMatch = comp.StatusMatch
		return comp
	}

	data, err := envelopeData(currentBody)
	if err != nil {
		comp.Err = fmt.Errorf("decode current envelope: %w", err)
		return comp
	}
	comp.BodyMatch = jsonEqual(data, legacyBody)
	return comp
}

func (sc *shadowCmd) post(ctx context.Context, client *http.Client, base string, body []byte) (int, []byte, time.Duration, error) {
	if client == nil {
		return 0, nil, 0, errors.New("nil client")
	}
	url := strings.TrimRight(base, "/") + generatePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if sc.token != "" {
		req.Header.Set("Authorization", "Bearer "+sc.token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, payload, time.Since(start), nil
}

func envelopeData(body []byte) ([]byte, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func jsonEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	normalize(&aj)
	normalize(&bj)
	return reflect.DeepEqual(aj, bj)
}

// normalize folds integral floats so 10 and 10.0 compare equal.
func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printShadowReport(w io.Writer, results []shadowComparison) {
	fmt.Fprintln(w, "Shadow Report")
	fmt.Fprintln(w, "=============")
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "ERROR"
		} else if res.diverged() {
			status = "DIFF"
		}
		fmt.Fprintf(w, "[%s] %s\n", status, res.Target.Name)
		fmt.Fprintf(w, "  Current: %d (%s)\n", res.CurrentStatus, res.CurrentDuration)
		fmt.Fprintf(w, "  Legacy: %d (%s)\n", res.LegacyStatus, res.LegacyDuration)
		if res.Err != nil {
			fmt.Fprintf(w, "  Error: %v\n", res.Err)
		} else {
			fmt.Fprintf(w, "  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Target.Critical)
		}
	}
}
