package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vsinha/bakeplan/pkg/application/dto"
	"github.com/vsinha/bakeplan/pkg/domain/entities"
	"github.com/vsinha/bakeplan/pkg/domain/services"
)

// Supported output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Config holds configuration for output generation
type Config struct {
	Format string
	// OutputDir receives one file per report when set; otherwise reports
	// are written to Out
	OutputDir string
	Verbose   bool
	Out       io.Writer
}

// ValidFormat reports whether format is supported
func ValidFormat(format string) bool {
	switch format {
	case FormatText, FormatJSON, FormatCSV:
		return true
	}
	return false
}

// report is one renderable result
type report struct {
	name   string
	value  any
	text   func(w io.Writer)
	header []string
	rows   [][]string
}

// Reconcile renders the outcome of reconciling one date
func Reconcile(result *dto.ReconcileResult, config Config) error {
	rows := make([][]string, 0, len(result.Recipes))
	for _, r := range result.Recipes {
		rows = append(rows, []string{
			result.Date,
			id(r.RecipeID),
			r.RecipeName,
			id(r.BatchID),
			strconv.Itoa(r.ProductCount),
			strconv.Itoa(r.TotalPlannedQuantity),
			strconv.FormatBool(r.Created),
			strconv.FormatBool(r.Updated),
		})
	}

	return generate(report{
		name:  "reconcile_" + result.Date,
		value: result,
		text:  func(w io.Writer) { reconcileText(w, result) },
		header: []string{
			"date", "recipe_id", "recipe_name", "batch_id",
			"product_count", "total_planned_quantity", "created", "updated",
		},
		rows: rows,
	}, config)
}

func reconcileText(w io.Writer, result *dto.ReconcileResult) {
	heading(w, fmt.Sprintf("📊 Reconciliation %s", result.Date))

	s := result.Stats
	fmt.Fprintf(w, "Batches: %d created, %d updated\n", s.BatchesCreated, s.BatchesUpdated)
	fmt.Fprintf(w, "Items: %d inserted, %d updated, %d deleted\n\n", s.ItemsInserted, s.ItemsUpdated, s.ItemsDeleted)

	if len(result.Recipes) > 0 {
		fmt.Fprintf(w, "%-8s %-24s %-8s %-9s %-8s %-10s\n",
			"Recipe", "Name", "Batch", "Products", "Planned", "Change")
		fmt.Fprintf(w, "%-8s %-24s %-8s %-9s %-8s %-10s\n",
			"--------", "------------------------", "--------", "---------", "--------", "----------")
		for _, r := range result.Recipes {
			fmt.Fprintf(w, "%-8d %-24s %-8d %-9d %-8d %-10s\n",
				r.RecipeID, truncate(r.RecipeName, 24), r.BatchID, r.ProductCount, r.TotalPlannedQuantity, change(r))
		}
		fmt.Fprintln(w)
	}

	if len(result.Unresolved) > 0 {
		fmt.Fprintf(w, "⚠️  Products without a recipe:\n")
		for _, p := range result.Unresolved {
			fmt.Fprintf(w, "  %d %s (ordered %d)\n", p.ProductID, p.ProductName, p.Ordered)
		}
		fmt.Fprintln(w)
	}

	if len(result.Failed) > 0 {
		fmt.Fprintf(w, "❌ Failed recipes: %s\n", joinIDs(result.Failed))
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(w, "⏭️  Skipped recipes: %s\n", joinIDs(result.Skipped))
	}
	anomaliesText(w, result.Anomalies)
}

func change(r dto.RecipeSummary) string {
	switch {
	case r.Created:
		return "created"
	case r.Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// DateSummaries renders the per-date outcome of a range reconciliation
func DateSummaries(summaries []dto.DateSummary, config Config) error {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Date,
			strconv.Itoa(s.BatchesCreated),
			strconv.Itoa(s.BatchesUpdated),
			s.Error,
		})
	}

	name := "reconcile_range"
	if len(summaries) > 0 {
		name = fmt.Sprintf("reconcile_%s_%s", summaries[0].Date, summaries[len(summaries)-1].Date)
	}

	return generate(report{
		name:  name,
		value: summaries,
		text: func(w io.Writer) {
			fmt.Fprintf(w, "%-12s %-8s %-8s %s\n", "Date", "Created", "Updated", "Error")
			fmt.Fprintf(w, "%-12s %-8s %-8s %s\n", "------------", "--------", "--------", "-----")
			for _, s := range summaries {
				fmt.Fprintf(w, "%-12s %-8d %-8d %s\n", s.Date, s.BatchesCreated, s.BatchesUpdated, s.Error)
			}
		},
		header: []string{"date", "batches_created", "batches_updated", "error"},
		rows:   rows,
	}, config)
}

// Plan renders the production view of one date
func Plan(plan *dto.Plan, config Config) error {
	rows := make([][]string, 0, len(plan.Lines))
	for _, l := range plan.Lines {
		rows = append(rows, []string{
			plan.Date,
			id(l.ProductID),
			l.ProductName,
			l.Category,
			optionalID(l.RecipeID),
			l.RecipeName,
			optionalID(l.BatchID),
			strconv.Itoa(l.Ordered),
			strconv.Itoa(l.PlannedQuantity),
			optionalInt(l.ActualQuantity),
			optionalInt(l.CompletedQuantity),
			l.RecipeQuantity.StringFixed(2),
			l.Cost.StringFixed(2),
			strconv.FormatBool(l.HasRecipe),
			strconv.FormatBool(l.IsCompleted),
			strconv.FormatBool(l.IsPersisted),
		})
	}

	return generate(report{
		name:  "plan_" + plan.Date,
		value: plan,
		text:  func(w io.Writer) { planText(w, plan) },
		header: []string{
			"date", "product_id", "product_name", "category", "recipe_id", "recipe_name", "batch_id",
			"ordered", "planned_quantity", "actual_quantity", "completed_quantity",
			"recipe_quantity", "cost", "has_recipe", "is_completed", "is_persisted",
		},
		rows: rows,
	}, config)
}

func planText(w io.Writer, plan *dto.Plan) {
	source := "preview from current orders"
	if plan.IsPersisted {
		source = "persisted batches"
	}
	heading(w, fmt.Sprintf("📋 Production plan %s (%s)", plan.Date, source))

	if len(plan.Lines) == 0 {
		fmt.Fprintln(w, "Nothing to produce.")
		anomaliesText(w, plan.Anomalies)
		return
	}

	fmt.Fprintf(w, "%-24s %-24s %-8s %-8s %-10s %-8s %-9s\n",
		"Recipe", "Product", "Planned", "Actual", "Recipe Qty", "Cost", "Completed")
	fmt.Fprintf(w, "%-24s %-24s %-8s %-8s %-10s %-8s %-9s\n",
		"------------------------", "------------------------", "--------", "--------", "----------", "--------", "---------")
	for _, l := range plan.Lines {
		recipe := l.RecipeName
		if !l.HasRecipe {
			recipe = dto.NoRecipe
		}
		actual := optionalInt(l.ActualQuantity)
		if actual == "" {
			actual = "-"
		}
		fmt.Fprintf(w, "%-24s %-24s %-8d %-8s %-10s %-8s %-9t\n",
			truncate(recipe, 24),
			truncate(l.ProductName, 24),
			l.PlannedQuantity,
			actual,
			l.RecipeQuantity.StringFixed(2),
			l.Cost.StringFixed(2),
			l.IsCompleted)
	}
	fmt.Fprintln(w)
	anomaliesText(w, plan.Anomalies)
}

// Consumption renders the ingredient requirements of one date
func Consumption(consumption dto.ConsumptionReport, config Config) error {
	rows := make([][]string, 0, len(consumption.Ingredients))
	for _, ic := range consumption.Ingredients {
		rows = append(rows, []string{
			consumption.Date,
			id(ic.IngredientID),
			ic.IngredientName,
			ic.Unit,
			ic.Kilograms.StringFixed(3),
			joinIDs(ic.Recipes),
		})
	}

	return generate(report{
		name:   "consumption_" + consumption.Date,
		value:  consumption,
		text:   func(w io.Writer) { consumptionText(w, consumption) },
		header: []string{"date", "ingredient_id", "ingredient_name", "unit", "kilograms", "recipes"},
		rows:   rows,
	}, config)
}

func consumptionText(w io.Writer, consumption dto.ConsumptionReport) {
	heading(w, fmt.Sprintf("🧂 Ingredient consumption %s", consumption.Date))

	if len(consumption.Ingredients) > 0 {
		fmt.Fprintf(w, "%-24s %-10s %-8s\n", "Ingredient", "Kilograms", "Recipes")
		fmt.Fprintf(w, "%-24s %-10s %-8s\n", "------------------------", "----------", "--------")
		for _, ic := range consumption.Ingredients {
			fmt.Fprintf(w, "%-24s %-10s %-8s\n", truncate(ic.IngredientName, 24), ic.Kilograms.StringFixed(3), joinIDs(ic.Recipes))
		}
		fmt.Fprintln(w)
	}
	anomaliesText(w, consumption.Anomalies)
}

// Dates renders the dates that have production batches
func Dates(dates []time.Time, config Config) error {
	formatted := make([]string, 0, len(dates))
	rows := make([][]string, 0, len(dates))
	for _, d := range dates {
		s := d.Format(entities.DateLayout)
		formatted = append(formatted, s)
		rows = append(rows, []string{s})
	}

	return generate(report{
		name:  "production_dates",
		value: formatted,
		text: func(w io.Writer) {
			for _, s := range formatted {
				fmt.Fprintln(w, s)
			}
		},
		header: []string{"date"},
		rows:   rows,
	}, config)
}

// Validation renders the problems found in a scenario's product parts
func Validation(result *services.ValidationResult, config Config) error {
	rows := make([][]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		rows = append(rows, []string{e})
	}

	return generate(report{
		name:  "validation",
		value: result,
		text: func(w io.Writer) {
			if result.Valid() {
				fmt.Fprintln(w, "✅ Product parts are valid")
				return
			}
			fmt.Fprintf(w, "❌ %d problems found:\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  - %s\n", e)
			}
		},
		header: []string{"error"},
		rows:   rows,
	}, config)
}

// generate writes a report in the configured format
func generate(r report, config Config) error {
	if !ValidFormat(config.Format) {
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}

	out := config.Out
	if out == nil {
		out = os.Stdout
	}

	var file *os.File
	if config.OutputDir != "" {
		if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		ext := map[string]string{FormatText: ".txt", FormatJSON: ".json", FormatCSV: ".csv"}[config.Format]
		filename := filepath.Join(config.OutputDir, r.name+ext)
		f, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", filename, err)
		}
		defer f.Close()
		file = f
		out = f
	}

	var err error
	switch config.Format {
	case FormatText:
		r.text(out)
	case FormatJSON:
		err = writeJSON(out, r.value)
	case FormatCSV:
		err = writeCSV(out, r.header, r.rows)
	}
	if err != nil {
		return err
	}

	if file != nil {
		if err := file.Sync(); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Name(), err)
		}
		if config.Verbose && config.Out != nil {
			fmt.Fprintf(config.Out, "💾 Results saved to: %s\n", file.Name())
		}
	}
	return nil
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "%s\n%s\n\n", title, strings.Repeat("=", utf8.RuneCountInString(title)+1))
}

func anomaliesText(w io.Writer, anomalies []dto.Anomaly) {
	if len(anomalies) == 0 {
		return
	}
	fmt.Fprintf(w, "Anomalies:\n")
	for _, a := range anomalies {
		fmt.Fprintf(w, "  %s\n", a)
	}
}

func id[T ~int64](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

func optionalID[T ~int64](v *T) string {
	if v == nil {
		return ""
	}
	return id(*v)
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func joinIDs[T ~int64](ids []T) string {
	parts := make([]string, len(ids))
	for i, v := range ids {
		parts[i] = id(v)
	}
	return strings.Join(parts, " ")
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
