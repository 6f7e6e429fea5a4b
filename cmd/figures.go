package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/s0up4200/figureshelf/catalog"
	"github.com/s0up4200/figureshelf/filter"
)

var (
	// list flags
	filterExpr  string
	preset      string
	searchQuery string
	showSealed  bool
	showImages  bool
	page        int
	limit       int

	noConfirm bool

	createFields figureFlags
	updateFields figureFlags
)

// figureFlags holds the editable figure fields of create and update
type figureFlags struct {
	name           string
	characterID    string
	manufacturerID string
	description    string
	status         string
	figureType     string
	heightCm       float64
	widthCm        float64
	lengthCm       float64
	weight         float64
	imageURL       string
	scaleRatio     string
}

func (f *figureFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.name, "name", "", "figure name")
	flags.StringVar(&f.characterID, "character", "", "character id")
	flags.StringVar(&f.manufacturerID, "manufacturer", "", "manufacturer id")
	flags.StringVar(&f.description, "description", "", "description")
	flags.StringVar(&f.status, "status", "", "status (Preorder, Available, Archived)")
	flags.StringVar(&f.figureType, "type", "", "figure type")
	flags.Float64Var(&f.heightCm, "height", 0, "height in cm")
	flags.Float64Var(&f.widthCm, "width", 0, "width in cm")
	flags.Float64Var(&f.lengthCm, "length", 0, "length in cm")
	flags.Float64Var(&f.weight, "weight", 0, "weight")
	flags.StringVar(&f.imageURL, "image", "", "image URL")
	flags.StringVar(&f.scaleRatio, "scale", "", "scale ratio, e.g. 1/7")
}

// dimensions returns the measurements given on the command line, nil when none was
func (f *figureFlags) dimensions(flags *pflag.FlagSet) *catalog.Dimensions {
	d := &catalog.Dimensions{
		HeightCm: changedFloat(flags, "height", f.heightCm),
		WidthCm:  changedFloat(flags, "width", f.widthCm),
		LengthCm: changedFloat(flags, "length", f.lengthCm),
	}
	if d.Empty() {
		return nil
	}
	return d
}

func (f *figureFlags) createInput(flags *pflag.FlagSet) (catalog.CreateFigureInput, error) {
	in := catalog.CreateFigureInput{
		Name:           f.name,
		CharacterID:    f.characterID,
		ManufacturerID: f.manufacturerID,
		Description:    f.description,
		FigureType:     f.figureType,
		Dimensions:     f.dimensions(flags),
		Weight:         changedFloat(flags, "weight", f.weight),
		ImageURL:       f.imageURL,
		ScaleRatio:     f.scaleRatio,
	}
	if f.status != "" {
		status, err := catalog.ParseStatus(f.status)
		if err != nil {
			return in, err
		}
		in.Status = status
	}
	return in, nil
}

func (f *figureFlags) updateInput(flags *pflag.FlagSet) (catalog.UpdateFigureInput, error) {
	in := catalog.UpdateFigureInput{
		Name:           changedString(flags, "name", f.name),
		CharacterID:    changedString(flags, "character", f.characterID),
		ManufacturerID: changedString(flags, "manufacturer", f.manufacturerID),
		Description:    changedString(flags, "description", f.description),
		FigureType:     changedString(flags, "type", f.figureType),
		Dimensions:     f.dimensions(flags),
		Weight:         changedFloat(flags, "weight", f.weight),
		ImageURL:       changedString(flags, "image", f.imageURL),
		ScaleRatio:     changedString(flags, "scale", f.scaleRatio),
	}
	if flags.Changed("status") {
		status, err := catalog.ParseStatus(f.status)
		if err != nil {
			return in, err
		}
		in.Status = &status
	}
	return in, nil
}

func changedString(flags *pflag.FlagSet, name, value string) *string {
	if !flags.Changed(name) {
		return nil
	}
	return &value
}

func changedFloat(flags *pflag.FlagSet, name string, value float64) *float64 {
	if !flags.Changed(name) {
		return nil
	}
	return &value
}

// figuresCmd groups the figure subcommands
var figuresCmd = &cobra.Command{
	Use:     "figures",
	Aliases: []string{"figure", "fig"},
	Short:   "List and manage figures",
}

// listCmd represents the figures list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List figures matching the filter criteria",
	Long: `List one page of figures. Sealed figures are hidden unless --show-sealed is set.

The page can be narrowed with an expression (--filter), a preset from the config
(--preset) or search bar syntax (--search), e.g. 'status:Preorder maker:"Good Smile"'.`,
	RunE: runList,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single figure",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a figure",
	Long:  `Create a figure. Name, character and manufacturer are required; the status defaults to Available.`,
	RunE:  runCreate,
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a figure",
	Long:  `Update the given fields of a figure. Sealed figures cannot be changed.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdate,
}

var sealCmd = &cobra.Command{
	Use:   "seal <id>",
	Short: "Seal a figure, locking it against further edits",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeal,
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List figure types",
	RunE:  runTypes,
}

func init() {
	rootCmd.AddCommand(figuresCmd)
	figuresCmd.AddCommand(listCmd, showCmd, createCmd, updateCmd, sealCmd, typesCmd)

	listCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	listCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	listCmd.Flags().StringVarP(&searchQuery, "search", "s", "", "search bar query")
	listCmd.Flags().BoolVar(&showSealed, "show-sealed", false, "include sealed figures")
	listCmd.Flags().BoolVar(&showImages, "images", false, "print image URLs")
	listCmd.Flags().IntVar(&page, "page", 1, "page number")
	listCmd.Flags().IntVar(&limit, "limit", 0, "page size (default from config)")

	createFields.register(createCmd.Flags())
	updateFields.register(updateCmd.Flags())

	sealCmd.Flags().BoolVar(&noConfirm, "no-confirm", false, "skip confirmation prompt")
}

func runList(cmd *cobra.Command, args []string) error {
	expr, err := getFilterExpression()
	if err != nil {
		return err
	}
	expr = filter.Combine(expr, filter.SealedExpression(showSealed))

	pageSize := limit
	if pageSize < 1 {
		pageSize = cfg.API.PageSize
	}

	ctx := context.Background()
	res := services.Figures.Paginated(ctx, catalog.PageQuery{Page: page, Limit: pageSize})
	if !res.OK() {
		return errors.New(res.Message)
	}

	logger.Debug().Str("filter", expr).Int("page", page).Msg("Filtering figures")

	listed := res.Data
	listed.Figures, err = filters.Apply(ctx, expr, res.Data.Figures)
	if err != nil {
		return fmt.Errorf("invalid filter expression: %w", err)
	}

	fmt.Print(catalog.NewConsoleFormatter().FormatFigureList(listed, catalog.FormatOptions{
		ShowSealed: showSealed,
		ShowImages: showImages,
	}))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	res := services.Figures.ByID(context.Background(), args[0])
	if !res.OK() {
		return errors.New(res.Message)
	}

	fmt.Print(catalog.NewConsoleFormatter().FormatFigureDetails(res.Data))
	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	in, err := createFields.createInput(cmd.Flags())
	if err != nil {
		return err
	}

	res := services.Figures.Create(context.Background(), in)
	if !res.OK() {
		return errors.New(res.Message)
	}

	fmt.Printf("✓ Created %s (ID: %s)\n", res.Data.Name, res.Data.ID)
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	in, err := updateFields.updateInput(cmd.Flags())
	if err != nil {
		return err
	}

	ctx := context.Background()
	current := services.Figures.ByID(ctx, args[0])
	if !current.OK() {
		return errors.New(current.Message)
	}

	res := services.Figures.UpdateLoaded(ctx, current.Data, in)
	if !res.OK() {
		return errors.New(res.Message)
	}

	fmt.Printf("✓ Updated %s\n", res.Data.Name)
	return nil
}

func runSeal(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	current := services.Figures.ByID(ctx, args[0])
	if !current.OK() {
		return errors.New(current.Message)
	}

	if !noConfirm && !current.Data.IsSealed {
		fmt.Printf("Sealing %s locks it against further edits. Continue? [y/N]: ", current.Data.Name)
		if !confirm() {
			logger.Info().Str("figure_id", current.Data.ID).Msg("Seal cancelled")
			return nil
		}
	}

	res := services.Figures.SealLoaded(ctx, current.Data)
	if !res.OK() {
		return errors.New(res.Message)
	}

	fmt.Printf("✓ Sealed %s\n", current.Data.Name)
	return nil
}

func runTypes(cmd *cobra.Command, args []string) error {
	res := services.Figures.Types(context.Background())
	if !res.OK() {
		return errors.New(res.Message)
	}

	fmt.Print(catalog.NewConsoleFormatter().FormatFigureTypes(res.Data))
	return nil
}

func confirm() bool {
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	return strings.ToLower(strings.TrimSpace(scanner.Text())) == "y"
}

// getFilterExpression determines the filter expression to use.
// An empty result matches every figure.
func getFilterExpression() (string, error) {
	// Priority: command line filter > preset > search query
	if filterExpr != "" {
		return filterExpr, nil
	}

	if preset != "" {
		if presetFilter, ok := cfg.Filters[preset]; ok {
			return presetFilter, nil
		}
		return "", fmt.Errorf("preset '%s' not found in config", preset)
	}

	return filter.SearchExpression(searchQuery), nil
}
