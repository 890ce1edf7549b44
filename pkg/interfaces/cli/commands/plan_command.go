package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/vsinha/bakeplan/pkg/application/services/orchestration"
	"github.com/vsinha/bakeplan/pkg/application/services/reconcile"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/domain/repositories"
	"github.com/vsinha/bakeplan/pkg/domain/services"
	"github.com/vsinha/bakeplan/pkg/infrastructure/config"
	"github.com/vsinha/bakeplan/pkg/infrastructure/events"
	"github.com/vsinha/bakeplan/pkg/infrastructure/logging"
	"github.com/vsinha/bakeplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/bakeplan/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/bakeplan/pkg/infrastructure/repositories/postgres"
	"github.com/vsinha/bakeplan/pkg/interfaces/cli/output"
)

// Commands understood by PlanCommand
const (
	CmdReconcile      = "reconcile"
	CmdReconcileRange = "reconcile-range"
	CmdPlan           = "plan"
	CmdConsumption    = "consumption"
	CmdDates          = "dates"
	CmdValidate       = "validate"
)

// Config holds configuration for the plan command
type Config struct {
	Command     string
	Date        string
	From        string
	To          string
	Owner       string
	ScenarioDir string
	EnvFile     string
	OutputDir   string
	Format      string
	Migrate     bool
	Verbose     bool
	Help        bool

	// Stdout and Stderr default to the process streams
	Stdout io.Writer
	Stderr io.Writer
}

// PlanCommand runs one planning operation against a CSV scenario or the
// production database
type PlanCommand struct {
	config Config
	stdout io.Writer
	stderr io.Writer
}

// NewPlanCommand creates a new plan command with the given configuration
func NewPlanCommand(config Config) *PlanCommand {
	c := &PlanCommand{
		config: config,
		stdout: config.Stdout,
		stderr: config.Stderr,
	}
	if c.stdout == nil {
		c.stdout = os.Stdout
	}
	if c.stderr == nil {
		c.stderr = os.Stderr
	}
	if c.config.Format == "" {
		c.config.Format = output.FormatText
	}
	return c
}

// arguments are the parsed command line values
type arguments struct {
	date  time.Time
	from  time.Time
	to    time.Time
	owner *uuid.UUID
}

// source is the storage a command runs against
type source struct {
	orders     repositories.OrderRepository
	catalog    repositories.CatalogRepository
	production repositories.ProductionRepository
	close      func()
}

// Execute runs the plan command
func (c *PlanCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	args, err := c.validateInputs()
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	cfg, err := config.Load(c.config.EnvFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.config.Verbose {
		cfg.Log.Level = zerolog.DebugLevel.String()
	}
	logger, err := logging.New(cfg.Log, c.stderr)
	if err != nil {
		return err
	}

	if c.config.Command == CmdValidate {
		return c.validate()
	}

	src, err := c.openSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer src.close()

	store := events.NewInMemoryEventStore(logger)
	if cfg.AMQP.URL != "" {
		publisher, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close AMQP connection")
			}
		}()

		forwarder := events.NewBrokerForwarder(publisher, cfg.AMQP.Exchange, []string{
			events.ProductionReconciledEvent,
			events.ProductionReconcileFailedEvent,
		}, logger)
		if err := store.Subscribe(forwarder.EventTypes(), forwarder); err != nil {
			return fmt.Errorf("failed to subscribe event forwarder: %w", err)
		}
		logger.Info().Str("exchange", cfg.AMQP.Exchange).Msg("forwarding production events")
	}
	// Runs before the publisher is closed
	defer store.Wait()

	engine := orchestration.NewEngine(src.orders, src.catalog, src.production, store, reconcile.Config{
		Workers:        cfg.Planner.Workers,
		StorageTimeout: cfg.Planner.StorageTimeout,
		BatchTimeout:   cfg.Planner.BatchTimeout,
	}, logger)

	start := time.Now()
	err = c.run(ctx, engine, args)
	logger.Debug().
		Str("command", c.config.Command).
		Dur("elapsed", time.Since(start)).
		Msg("command finished")
	return err
}

func (c *PlanCommand) run(ctx context.Context, engine *orchestration.Engine, args arguments) error {
	out := c.outputConfig()

	switch c.config.Command {
	case CmdReconcile:
		result, err := engine.Reconcile(ctx, args.date, args.owner)
		if result != nil {
			if renderErr := output.Reconcile(result, out); renderErr != nil {
				return errors.Join(err, renderErr)
			}
		}
		return err

	case CmdReconcileRange:
		summaries, err := engine.ReconcileRange(ctx, args.from, args.to, args.owner)
		if len(summaries) > 0 {
			if renderErr := output.DateSummaries(summaries, out); renderErr != nil {
				return errors.Join(err, renderErr)
			}
		}
		return err

	case CmdPlan:
		plan, err := engine.GetPlan(ctx, args.date)
		if err != nil {
			return err
		}
		return output.Plan(plan, out)

	case CmdConsumption:
		report, err := engine.IngredientConsumption(ctx, args.date)
		if err != nil {
			return err
		}
		return output.Consumption(report, out)

	case CmdDates:
		dates, err := engine.ProductionDates(ctx, args.from, args.to)
		if err != nil {
			return err
		}
		return output.Dates(dates, out)
	}

	return fmt.Errorf("unknown command: %s", c.config.Command)
}

// validate checks the product parts of the scenario as read from disk
func (c *PlanCommand) validate() error {
	scenario, err := csv.NewLoader().LoadScenario(c.config.ScenarioDir)
	if err != nil {
		return fmt.Errorf("error loading scenario: %w", err)
	}

	parts := make([]entities.BOMPart, len(scenario.Parts))
	for i, p := range scenario.Parts {
		parts[i] = *p
	}
	products := make([]entities.Product, len(scenario.Products))
	for i, p := range scenario.Products {
		products[i] = *p
	}

	validator := services.NewBOMValidator()
	result := validator.ValidateBOM(parts)
	result.Errors = append(result.Errors, validator.ValidateProductUniqueness(products).Errors...)

	if err := output.Validation(result, c.outputConfig()); err != nil {
		return err
	}
	if !result.Valid() {
		return fmt.Errorf("scenario has %d problems", len(result.Errors))
	}
	return nil
}

// openSource loads the CSV scenario into memory or connects to PostgreSQL
func (c *PlanCommand) openSource(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*source, error) {
	if c.config.ScenarioDir != "" {
		scenario, err := csv.NewLoader().LoadScenario(c.config.ScenarioDir)
		if err != nil {
			return nil, fmt.Errorf("error loading scenario: %w", err)
		}

		catalog := memory.NewCatalogRepository()
		orders := memory.NewOrderRepository(catalog)
		if err := scenario.Apply(catalog, orders); err != nil {
			return nil, fmt.Errorf("error loading scenario: %w", err)
		}
		logger.Debug().
			Str("scenario", c.config.ScenarioDir).
			Int("products", len(scenario.Products)).
			Int("parts", len(scenario.Parts)).
			Int("orders", len(scenario.Orders)).
			Msg("scenario loaded")

		return &source{
			orders:     orders,
			catalog:    catalog,
			production: memory.NewProductionRepository(),
			close:      func() {},
		}, nil
	}

	if err := cfg.Postgres.Validate(); err != nil {
		return nil, fmt.Errorf("no -scenario given and %w", err)
	}
	if c.config.Migrate {
		if err := postgres.Migrate(cfg.Postgres, cfg.MigrationsPath, logger); err != nil {
			return nil, err
		}
	}

	pool, err := postgres.Connect(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	return &source{
		orders:     postgres.NewOrderRepository(pool),
		catalog:    postgres.NewCatalogRepository(pool),
		production: postgres.NewProductionRepository(pool, logger),
		close:      pool.Close,
	}, nil
}

// validateInputs validates the command configuration
func (c *PlanCommand) validateInputs() (arguments, error) {
	var args arguments

	if !output.ValidFormat(c.config.Format) {
		return args, fmt.Errorf("unsupported output format: %s", c.config.Format)
	}

	var err error
	switch c.config.Command {
	case CmdReconcile, CmdPlan, CmdConsumption:
		if c.config.Date == "" {
			return args, fmt.Errorf("%s requires -date", c.config.Command)
		}
		if args.date, err = entities.ParseDate(c.config.Date); err != nil {
			return args, err
		}
	case CmdReconcileRange, CmdDates:
		if c.config.From == "" || c.config.To == "" {
			return args, fmt.Errorf("%s requires -from and -to", c.config.Command)
		}
		if args.from, err = entities.ParseDate(c.config.From); err != nil {
			return args, err
		}
		if args.to, err = entities.ParseDate(c.config.To); err != nil {
			return args, err
		}
		if args.from.After(args.to) {
			return args, fmt.Errorf("-from %s is after -to %s", c.config.From, c.config.To)
		}
	case CmdValidate:
		if c.config.ScenarioDir == "" {
			return args, fmt.Errorf("%s requires -scenario", CmdValidate)
		}
	case "":
		return args, fmt.Errorf("no command given, use -cmd")
	default:
		return args, fmt.Errorf("unknown command: %s", c.config.Command)
	}

	if c.config.Owner != "" {
		owner, err := uuid.FromString(c.config.Owner)
		if err != nil {
			return args, fmt.Errorf("invalid -owner %q: %w", c.config.Owner, err)
		}
		args.owner = &owner
	}

	return args, nil
}

func (c *PlanCommand) outputConfig() output.Config {
	return output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		Out:       c.stdout,
	}
}

// showHelp displays the help message
func (c *PlanCommand) showHelp() {
	fmt.Fprint(c.stdout, `bakeplan - production planning for a bakery

USAGE:
    bakeplan -cmd <command> [options]

COMMANDS:
    reconcile         Bring one date's production batches in line with its orders
    reconcile-range   Reconcile every date from -from to -to inclusive
    plan              Show the production plan of a date (read-only)
    consumption       Show the ingredient weights a date's plan requires
    dates             List dates that have production batches
    validate          Check a scenario's product parts for cycles and bad references

OPTIONS:
    -cmd <command>      Command to run
    -date <YYYY-MM-DD>  Production date for reconcile, plan and consumption
    -from <YYYY-MM-DD>  First date for reconcile-range and dates
    -to <YYYY-MM-DD>    Last date for reconcile-range and dates
    -owner <uuid>       Owner assigned to every reconciled batch
    -scenario <dir>     Run against a CSV scenario directory in memory
    -env <file>         Environment file to load (default: .env)
    -migrate            Apply database migrations before running
    -output <dir>       Write results to files in this directory
    -format <fmt>       Output format: text, json, csv (default: text)
    -verbose            Enable debug logging
    -help               Show this help message

Without -scenario the command runs against PostgreSQL configured through
DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME and DB_SSLMODE. Setting
AMQP_URL forwards reconciliation events to AMQP_EXCHANGE.

SCENARIO DIRECTORY STRUCTURE:
    scenario_name/
    ├── categories.csv          # id,name
    ├── ingredients.csv         # id,name,price,kilo_per_unit,unit
    ├── recipes.csv             # id,name,category_id,price
    ├── recipe_ingredients.csv  # recipe_id,ingredient_id,quantity
    ├── products.csv            # id,name,category_id,price (required)
    ├── product_parts.csv       # id,product_id,ingredient_id,recipe_id,sub_product_id,quantity,product_only,baker_only
    └── orders.csv              # order_id,date,owner_id,status,product_id,quantity (required)

EXAMPLES:
    # Preview the plan of a scenario date
    bakeplan -cmd plan -scenario examples/bakery -date 2024-03-01

    # Reconcile a week in the database and print JSON
    bakeplan -cmd reconcile-range -from 2024-03-01 -to 2024-03-07 -format json

    # Ingredient weights as CSV files
    bakeplan -cmd consumption -scenario examples/bakery -date 2024-03-01 -format csv -output results/
`)
}
