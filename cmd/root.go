package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Fepozopo/geotag/pkg/geotag"
)

var cfgFile string

// Glue-level coordinate range failures; they map to their own exit codes.
var (
	errLatRange = errors.New("latitude must be between -90 and 90")
	errLonRange = errors.New("longitude must be between -180 and 180")
)

var rootCmd = &cobra.Command{
	Use:   "geotag IMAGE LAT LON",
	Short: "Embed GPS coordinates into a JPEG/TIFF image's EXIF metadata",
	Long: `geotag writes GPS latitude/longitude tags into an image's EXIF block
while preserving all other metadata. Existing GPS tags are never replaced
unless --force is given.

Examples:
  # Tag a photo with a location
  geotag photo.jpg 9.574639 77.679861

  # Replace an existing GPS position
  geotag --force photo.jpg 48.858370 2.294481

  # Keep a copy of the original file as photo.jpg.bak
  geotag --backup photo.jpg 35.6824 139.7531`,
	Args:          cobra.ExactArgs(3),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runEmbed,
}

// Execute runs the root command and maps the failure kind to the process
// exit status. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode translates an error into the documented exit status. Anything
// not covered by a known kind is an unexpected failure.
func exitCode(err error) int {
	switch {
	case errors.Is(err, geotag.ErrNotFound):
		return 2
	case errors.Is(err, errLatRange):
		return 3
	case errors.Is(err, errLonRange):
		return 4
	case errors.Is(err, geotag.ErrGPSPresent):
		return 5
	case errors.Is(err, geotag.ErrUnsupportedFormat):
		return 6
	}
	return 10
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.geotag.yaml)")
	rootCmd.Flags().BoolP("force", "f", false, "overwrite existing GPS EXIF data if present")
	rootCmd.Flags().Bool("backup", false, "copy the original file to IMAGE.bak before writing")

	viper.BindPFlag("force", rootCmd.Flags().Lookup("force"))
	viper.BindPFlag("backup", rootCmd.Flags().Lookup("backup"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Load .env if one is present; ignore the error like godotenv callers do.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".geotag")
	}

	viper.SetEnvPrefix("geotag")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func runEmbed(cmd *cobra.Command, args []string) error {
	path := args[0]
	lat, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", errLatRange, args[1])
	}
	lon, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", errLonRange, args[2])
	}

	// The core re-checks existence; this check exists so a bad path fails
	// before anything else is reported.
	if st, err := os.Stat(path); err != nil || !st.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", geotag.ErrNotFound, path)
	}
	// NaN and Inf fall out of the range checks too.
	if !(lat >= -90 && lat <= 90) {
		return errLatRange
	}
	if !(lon >= -180 && lon <= 180) {
		return errLonRange
	}

	opts := geotag.Options{
		Overwrite: viper.GetBool("force"),
		Backup:    viper.GetBool("backup"),
	}
	if err := geotag.Embed(path, lat, lon, opts); err != nil {
		return err
	}
	fmt.Printf("✅ GPS data added to: %s\n", path)
	return nil
}
