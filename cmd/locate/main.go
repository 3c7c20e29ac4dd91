// locate：一次性获取宿主当前位置并打印，可选附近门店与到目标点的距离
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"geoloc/internal/config"
	"geoloc/internal/format"
	"geoloc/internal/geo"
	"geoloc/internal/geolocation"
	"geoloc/internal/location"
	"geoloc/internal/logger"
	"geoloc/internal/stores"
	"geoloc/internal/utils"
)

type output struct {
	Reading  *location.Reading      `json:"reading,omitempty"`
	Failure  *location.Failure      `json:"failure,omitempty"`
	Target   *targetDistance        `json:"target,omitempty"`
	Nearby   []stores.StoreDistance `json:"nearby,omitempty"`
	Provider int                    `json:"providers"`
}

type targetDistance struct {
	To        geo.Coordinate `json:"to"`
	Miles     float64        `json:"miles"`
	Formatted string         `json:"formatted"`
}

func parseTarget(s string) (geo.Coordinate, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Coordinate{}, errors.New("expected lat,lng")
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(a), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(b), 64)
	c := geo.Coordinate{Lat: lat, Lng: lng}
	if err1 != nil || err2 != nil || !c.Valid() {
		return geo.Coordinate{}, errors.New("invalid coordinate " + s)
	}
	return c, nil
}

func main() {
	cfg := config.Load()
	l := logger.Setup()
	timeout := flag.Duration("timeout", cfg.GeolocationTimeout, "acquisition timeout")
	ip := flag.String("ip", "", "locate this address instead of the host's public address")
	to := flag.String("to", "", "print distance to lat,lng")
	nearby := flag.Int("nearby", 0, "list this many nearby stores from the database")
	asJSON := flag.Bool("json", false, "print JSON")
	flag.Parse()

	var target geo.Coordinate
	if *to != "" {
		c, err := parseTarget(*to)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		target = c
	}

	host, closeProviders := config.BuildHost(cfg)
	defer closeProviders()
	var platform geolocation.Geolocation
	var out output
	if host != nil {
		host.Heartbeat(context.Background())
		platform = host
		out.Provider = host.Len()
	}
	ctx := context.Background()
	if *ip != "" {
		ctx = geolocation.WithClientIP(ctx, *ip)
	}
	rd, err := location.NewService(platform).Acquire(ctx, *timeout)
	if err != nil {
		var f *location.Failure
		if errors.As(err, &f) {
			out.Failure = f
		}
	} else {
		out.Reading = &rd
		if *to != "" {
			mi := geo.Distance(rd.Location, target)
			out.Target = &targetDistance{To: target, Miles: mi, Formatted: format.Distance(mi)}
		}
		if *nearby > 0 {
			out.Nearby = findNearby(cfg, l.With("step", "nearby"), rd.Location, *nearby)
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	} else {
		printText(out)
	}
	if out.Failure != nil {
		os.Exit(1)
	}
}

func findNearby(cfg config.Config, l *slog.Logger, from geo.Coordinate, limit int) []stores.StoreDistance {
	db, err := utils.OpenPostgres(cfg.Postgres)
	if err != nil {
		l.Error("db_open_error", "err", err)
		return nil
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ranked, err := stores.NewNearby(stores.NewRepository(db), stores.WithRadius(cfg.NearbyRadiusMiles)).Find(ctx, from, limit)
	if err != nil {
		l.Error("nearby_error", "err", err)
		return nil
	}
	return ranked
}

func printText(o output) {
	if o.Failure != nil {
		fmt.Printf("location unavailable: %s (%s)\n", o.Failure.Message, o.Failure.Code)
		return
	}
	r := o.Reading
	fmt.Printf("lat=%.6f lng=%.6f accuracy=%.0fm at=%s\n", r.Location.Lat, r.Location.Lng, r.Accuracy, time.UnixMilli(r.Timestamp).Format(time.RFC3339))
	if o.Target != nil {
		fmt.Printf("distance to %.4f,%.4f: %s\n", o.Target.To.Lat, o.Target.To.Lng, o.Target.Formatted)
	}
	for i, sd := range o.Nearby {
		fmt.Printf("%2d. %-30s %10s  %s\n", i+1, sd.Store.Name, format.Distance(sd.DistanceMiles), sd.Store.Address)
	}
}
