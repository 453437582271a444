package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/loykin/dqtprobe/internal/amqpc"
	"github.com/loykin/dqtprobe/internal/common"
	"github.com/loykin/dqtprobe/internal/mgmt"
	"github.com/loykin/dqtprobe/internal/scenario"
	"github.com/loykin/dqtprobe/internal/store"
)

// errScenarioFailed makes a failing verdict distinguishable from setup
// errors, so main can exit non-zero without logging a spurious stack of
// context.
var errScenarioFailed = errors.New("scenario did not pass")

// newAdminClient builds the management API client from config.
func newAdminClient(cfg *ConfigDoc) (*mgmt.Client, error) {
	timeout, err := cfg.ClientTimeout()
	if err != nil {
		return nil, err
	}
	tlsCfg, err := cfg.TLSConfig()
	if err != nil {
		return nil, err
	}
	return mgmt.New(mgmt.Config{
		URL:       cfg.Broker.ManagementURL,
		Username:  cfg.Broker.Username,
		Password:  cfg.Broker.Password,
		Timeout:   timeout,
		TlsConfig: tlsCfg,
	}), nil
}

// executeRun runs either the built-in reproduction scenario or the one
// loaded from scenarioPath, and records the result unless the store is
// disabled.
func executeRun(ctx context.Context, cfg *ConfigDoc, scenarioPath string) (*scenario.Result, error) {
	logger := common.GetLogger().WithComponent("run")

	admin, err := newAdminClient(cfg)
	if err != nil {
		return nil, err
	}

	if !cfg.Wait.Disabled {
		waitTimeout, err := parseOptionalDuration(cfg.Wait.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid wait.timeout: %w", err)
		}
		interval, err := parseOptionalDuration(cfg.Wait.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid wait.interval: %w", err)
		}
		if waitTimeout > 0 {
			logger.Info("waiting for broker", "url", cfg.Broker.ManagementURL, "timeout", waitTimeout)
			if err := waitForBroker(ctx, admin, waitTimeout, interval); err != nil {
				return nil, err
			}
		}
	}

	dialTimeout, _ := cfg.ClientTimeout()
	queue := amqpc.New(amqpc.Config{
		URL:         cfg.Broker.AmqpURL,
		DialTimeout: dialTimeout,
	})

	var sc scenario.Scenario
	if scenarioPath != "" {
		sc, err = scenario.LoadFromFile(scenarioPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenario: %w", err)
		}
	} else {
		sc = scenario.DefaultQueueTypeRepro(scenario.ReproParams{
			Vhost:   cfg.Scenario.Vhost,
			Queue:   cfg.Scenario.Queue,
			User:    cfg.Scenario.User,
			Cleanup: cfg.Scenario.Cleanup,
		})
	}

	runner := scenario.NewRunner(scenario.Broker{Admin: admin, Queue: queue})
	res := runner.Run(ctx, sc)

	if !cfg.Store.Disabled {
		if err := recordResult(cfg.Store.Config, res); err != nil {
			logger.Warn("failed to record run history", "error", err)
		}
	}
	return res, nil
}

// recordResult persists a finished run into the configured history store.
func recordResult(cfg store.Config, res *scenario.Result) error {
	s, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	_, err = s.RecordRun(toRunRecord(res))
	return err
}

// toRunRecord flattens a runner result into its persisted form.
func toRunRecord(res *scenario.Result) store.RunRecord {
	rec := store.RunRecord{
		Scenario:   res.Scenario,
		Passed:     res.Passed,
		Aborted:    res.Aborted,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Steps:      make([]store.StepRecord, 0, len(res.Steps)),
	}
	for _, st := range res.Steps {
		rec.Steps = append(rec.Steps, store.StepRecord{
			Seq:       st.Seq,
			Name:      st.Name,
			Kind:      string(st.Kind),
			Status:    st.Actual.Status.String(),
			Code:      st.Actual.Code,
			Reason:    st.Actual.Reason,
			Pass:      st.Verdict.Pass,
			Detail:    st.Verdict.Detail,
			Tolerated: st.Tolerated,
		})
	}
	return rec
}
