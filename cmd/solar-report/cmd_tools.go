package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/i474232898/solar-report/internal/irradiance"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <site-id>",
	Short: "Download datasets for one site into timestamped CSVs",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

var renderCmd = &cobra.Command{
	Use:   "render <site-id>",
	Short: "Render charts from the latest stored CSVs of one site",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List registered sites",
	RunE:  runSites,
}

var convertCmd = &cobra.Command{
	Use:   "convert <response.json> <out.csv>",
	Short: "Convert a saved API response to CSV",
	Long: `Convert a saved forecasts or estimated_actuals API response file into
the CSV layout used by fetch.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

var (
	fetchKind   string
	convertKind string
)

func init() {
	fetchCmd.Flags().StringVar(&fetchKind, "kind", "both", "dataset to fetch: actuals, forecast or both")
	convertCmd.Flags().StringVar(&convertKind, "kind", string(irradiance.KindForecast), "dataset in the file: actuals or forecast")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(convertCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid site id %q", args[0])
	}
	if fetchKind != "both" && fetchKind != string(irradiance.KindActuals) && fetchKind != string(irradiance.KindForecast) {
		return fmt.Errorf("unknown kind %q", fetchKind)
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	s, err := a.registry.Open(id)
	if err != nil {
		return err
	}

	if fetchKind != string(irradiance.KindForecast) {
		path, err := a.service.FetchActuals(cmd.Context(), s)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	if fetchKind != string(irradiance.KindActuals) {
		path, err := a.service.FetchForecast(cmd.Context(), s)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid site id %q", args[0])
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	s, err := a.registry.Open(id)
	if err != nil {
		return err
	}

	charts, err := a.renderer.Render(s)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), charts.ActualsPNG)
	fmt.Fprintln(cmd.OutOrStdout(), charts.ForecastPNG)
	return nil
}

func runSites(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLATITUDE\tLONGITUDE\tUTC OFFSET\tCLIENT")
	for _, s := range a.registry.Sites() {
		fmt.Fprintf(w, "%d\t%s\t%g\t%g\t%+d\t%s\n", s.ID, s.Name, s.Latitude, s.Longitude, s.Timezone, s.ClientName)
	}
	return w.Flush()
}

func runConvert(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]
	switch irradiance.Kind(convertKind) {
	case irradiance.KindForecast:
		return irradiance.ConvertForecastsFile(in, out)
	case irradiance.KindActuals:
		return irradiance.ConvertActualsFile(in, out)
	default:
		return fmt.Errorf("unknown kind %q", convertKind)
	}
}
