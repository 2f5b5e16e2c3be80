package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/virtualmission/vlm/internal/config"
	"github.com/virtualmission/vlm/internal/converter"
	"github.com/virtualmission/vlm/internal/elevation"
	"github.com/virtualmission/vlm/internal/logging"
	"github.com/virtualmission/vlm/internal/util"
)

const usage = `Usage: vlm [options] <csvfile> [kmlfile]

Converts a Litchi waypoint mission export into a Google Earth flythrough.
The KML is written next to the CSV file unless kmlfile is given.

Options:
`

// flag name to config key
var flagKeys = map[string]string{
	"speed":     "mission.defaultSpeed",
	"fov":       "mission.fov",
	"ground":    "mission.takeoffAltitude",
	"bezier":    "mission.bezierPoints",
	"interval":  "mission.infillDistance",
	"mincurve":  "mission.minCurve",
	"googlekey": "elevation.googleKey",
	"log-level": "logLevel",
}

func newFlagSet(stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("vlm", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	fs.StringP("config", "c", ".", "directory holding "+config.FileName)
	fs.Float64P("speed", "s", 10, "default speed (m/s) for waypoints without one")
	fs.Float64P("fov", "f", 85, "diagonal field of view of the camera (degrees)")
	fs.Float64P("ground", "g", 0, "takeoff ground elevation (m MSL), instead of the looked-up one")
	fs.IntP("bezier", "b", 5, "points sampled along each curve")
	fs.Float64P("interval", "i", 1000, "largest distance between path points (m)")
	fs.Float64P("mincurve", "m", 5, "curve size below which a waypoint is a sharp corner (m)")
	fs.StringP("googlekey", "k", "", "Google Elevation API key; Open-Elevation is used without one")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	return fs
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	config.SetDefaults()

	fs := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return errors.New("expected a csv file and an optional kml file")
	}

	configDir, _ := fs.GetString("config")
	cfgErr := config.Load(configDir)

	for name, key := range flagKeys {
		if err := viper.BindPFlag(key, fs.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	logs := logging.NewSlogManager()
	logs.SetConsole(stderr)
	logs.Setup(nil, viper.GetString("logLevel"), nil)
	log := logs.Logger()
	if cfgErr != nil {
		log.Debug("Failed to load config, using defaults", "error", cfgErr)
	}

	csvPath := fs.Arg(0)
	kmlPath := util.KMLPath(csvPath)
	if fs.NArg() == 2 {
		kmlPath = fs.Arg(1)
	}

	corrector, err := elevation.FromConfig(config.Elevation(), log)
	if err != nil {
		return err
	}
	conv, err := converter.New(converter.Dependencies{
		Corrector: corrector,
		Logger:    log,
	}, config.MissionSettings())
	if err != nil {
		return err
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open mission: %w", err)
	}
	defer f.Close()

	log.Info("Converting mission", "csv", csvPath, "elevation", conv.Source())
	res, err := conv.Convert(ctx, converter.Request{
		Filename: csvPath,
		CSV:      f,
	})
	if err != nil {
		return err
	}
	for _, w := range res.Report.Warnings {
		log.Warn("Elevation lookup degraded", "warning", w)
	}

	if err := os.WriteFile(kmlPath, res.Conversion.KML, 0644); err != nil {
		return fmt.Errorf("failed to write kml: %w", err)
	}

	c := res.Conversion
	fmt.Fprintf(stdout, "%s: %d waypoints, %d POIs, %d path points, %.0f m, %.0f s -> %s\n",
		c.MissionName, c.WaypointCount, c.POICount, c.SmoothedCount, c.PathLength, c.FlightTime, kmlPath)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "vlm: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
