// Package wiring assembles the full request-lifecycle stack — storage,
// events, templates, provider handlers, the reconciler, and the boundary
// service — from a resolved config.Config. Both cmd/hostbroker (script
// mode, one process per invocation) and cmd/hostbrokerd (long-lived
// server mode) call Build so the assembly logic, which neither binary's
// teacher counterpart needed to share, lives in exactly one place.
package wiring

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/hostbroker/pkg/boundary"
	"github.com/cuemby/hostbroker/pkg/config"
	"github.com/cuemby/hostbroker/pkg/events"
	"github.com/cuemby/hostbroker/pkg/health"
	"github.com/cuemby/hostbroker/pkg/lifecycle"
	"github.com/cuemby/hostbroker/pkg/log"
	"github.com/cuemby/hostbroker/pkg/provider"
	"github.com/cuemby/hostbroker/pkg/reconcile"
	"github.com/cuemby/hostbroker/pkg/storage"
	"github.com/cuemby/hostbroker/pkg/template"
	"github.com/cuemby/hostbroker/pkg/types"
	"github.com/cuemby/hostbroker/pkg/unitofwork"
)

// Stack is every component Build assembles, returned so a binary can
// start/stop the reconciler, attach HTTP handlers, or shut storage down
// cleanly.
type Stack struct {
	Config     *config.Config
	Strategy   storage.Strategy
	Templates  *template.Store
	Registry   *provider.Registry
	AWSClient  *provider.AWSClient
	Reconciler *reconcile.Reconciler
	Engine     *lifecycle.Engine
	Boundary   *boundary.Service
}

// Build constructs a Stack from cfg. requireProvider controls whether a
// failure to build the AWS client is fatal: cmd/hostbrokerd always needs
// a working provider client to serve requests, but cmd/hostbroker's
// getAvailableTemplates subcommand is useful even without AWS
// credentials configured, so its caller passes false and proceeds with
// an empty provider registry (every provider-dispatching operation then
// fails per-request with a clear "no handler registered" error, rather
// than the whole process refusing to start).
func Build(ctx context.Context, cfg *config.Config, requireProvider bool) (*Stack, error) {
	strategy, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("build storage strategy: %w", err)
	}

	publisher, err := buildPublisher(cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("build event publisher: %w", err)
	}
	uow := unitofwork.NewFactory(strategy, publisher)

	resolver, err := buildAliasResolver(cfg.Template)
	if err != nil {
		return nil, fmt.Errorf("build ami alias resolver: %w", err)
	}
	templates, err := template.NewStore(cfg.Template.Path, resolver)
	if err != nil {
		return nil, fmt.Errorf("load template store %s: %w", cfg.Template.Path, err)
	}

	registry := provider.NewRegistry(provider.RetryPolicy{
		MaxRetries: cfg.Provider.MaxRetries,
		BaseDelay:  cfg.Provider.RetryBaseDelay,
	})

	awsClient, err := provider.NewAWSClient(ctx, cfg.Provider)
	if err != nil {
		if requireProvider {
			return nil, fmt.Errorf("build AWS client: %w", err)
		}
		log.Logger.Warn().Err(err).Msg("AWS client unavailable; provider-dispatching operations will fail until credentials are configured")
	} else {
		registerHandlers(registry, awsClient)
	}

	reconciler := reconcile.NewReconciler(strategy, uow, registry, reconcile.WithCheckers(checkerFactory(awsClient)))

	quota := buildQuotaChecker(awsClient, cfg.Provider)
	engine := lifecycle.NewEngine(strategy, uow, templates, registry, reconciler, quota)

	limiter := boundary.NewLimiter(cfg.RateLimit)
	svc := boundary.NewService(engine, templates, strategy, limiter)

	return &Stack{
		Config:     cfg,
		Strategy:   strategy,
		Templates:  templates,
		Registry:   registry,
		AWSClient:  awsClient,
		Reconciler: reconciler,
		Engine:     engine,
		Boundary:   svc,
	}, nil
}

func registerHandlers(registry *provider.Registry, client *provider.AWSClient) {
	registry.Register(types.StrategyDirectLaunch, &provider.DirectLaunchHandler{Client: client})
	registry.Register(types.StrategyAutoScalingGroup, &provider.AutoScalingGroupHandler{Client: client})
	registry.Register(types.StrategyInstantFleet, &provider.InstantFleetHandler{Client: client})
	registry.Register(types.StrategyManagedFleet, &provider.ManagedFleetHandler{Client: client})
	registry.Register(types.StrategySpotFleet, &provider.SpotFleetHandler{Client: client})
}

// checkerFactory builds the health.Checker set run against a Running
// Machine (spec.md §4.4): EC2 instance status, EC2 system status, and a
// small CloudWatch metric-threshold check. A nil AWSClient (provider
// unavailable) yields an empty checker set, matching reconcile.Reconciler's
// documented behavior of tracking status without ever marking a Machine
// unhealthy.
func checkerFactory(client *provider.AWSClient) reconcile.CheckerFactory {
	return func(m *types.Machine) []health.Checker {
		if client == nil {
			return nil
		}
		return []health.Checker{
			health.NewInstanceStatusChecker(client.EC2, m.MachineID),
			health.NewSystemStatusChecker(client.EC2, m.MachineID),
			health.NewMetricChecker(client.CloudWatch, m.MachineID, []health.MetricThreshold{
				{Namespace: "AWS/EC2", Metric: "CPUUtilization", Max: 95},
				{Namespace: "AWS/EC2", Metric: "StatusCheckFailed", Max: 0},
			}, 5*time.Minute),
		}
	}
}

// buildQuotaChecker selects the no-op checker when there is no AWS client
// to query or no ceiling configured, and the EC2-backed checker otherwise.
func buildQuotaChecker(client *provider.AWSClient, cfg config.ProviderConfig) lifecycle.QuotaChecker {
	if client == nil || cfg.MaxConcurrentInstances <= 0 {
		return provider.NoopQuotaChecker{}
	}
	return provider.NewEC2QuotaChecker(client.EC2, cfg.MaxConcurrentInstances, cfg.QuotaCacheTTL)
}

func buildPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.PublisherMode {
	case "", "logging":
		return events.NewLoggingPublisher(), nil
	case "sync":
		return events.NewSyncPublisher(events.NewRegistry()), nil
	case "async":
		bufferSize := cfg.BufferSize
		if bufferSize <= 0 {
			bufferSize = 256
		}
		p := events.NewAsyncPublisher(events.NewRegistry(), bufferSize)
		p.Start()
		return p, nil
	default:
		return nil, fmt.Errorf("unknown events publisher_mode %q", cfg.PublisherMode)
	}
}

// buildAliasResolver loads cfg.AMIAliasFile (a flat YAML map of alias to
// literal AMI id) when AMI resolution is enabled; an unset file is not an
// error, it just yields an empty alias map.
func buildAliasResolver(cfg config.TemplateConfig) (*template.AliasResolver, error) {
	if !cfg.AMIResolutionEnabled || cfg.AMIAliasFile == "" {
		return template.NewAliasResolver(nil), nil
	}
	data, err := os.ReadFile(cfg.AMIAliasFile)
	if err != nil {
		if os.IsNotExist(err) {
			return template.NewAliasResolver(nil), nil
		}
		return nil, err
	}
	var aliases map[string]string
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, fmt.Errorf("parse ami alias file %s: %w", cfg.AMIAliasFile, err)
	}
	return template.NewAliasResolver(aliases), nil
}
