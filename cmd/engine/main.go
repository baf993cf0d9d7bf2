package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/veloreach/veloreach/pkg/builder"
	"github.com/veloreach/veloreach/pkg/costmodel"
	"github.com/veloreach/veloreach/pkg/engine/accessibility"
	"github.com/veloreach/veloreach/pkg/geometry"
	"github.com/veloreach/veloreach/pkg/kv"
	"github.com/veloreach/veloreach/pkg/osmparser"
	"github.com/veloreach/veloreach/pkg/server/rest"
	"github.com/veloreach/veloreach/pkg/server/rest/service"
	"github.com/veloreach/veloreach/pkg/snap"
	"github.com/veloreach/veloreach/pkg/topology"

	"github.com/dgraph-io/badger/v4"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "net/http/pprof"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

var (
	listenAddr   = flag.String("listenaddr", ":5000", "server listen address")
	mapFile      = flag.String("f", "solo_jogja.osm.pbf", "openstreetmap pbf file for the street network")
	clipLat      = flag.Float64("cliplat", 0, "latitude of the clip disc center")
	clipLon      = flag.Float64("cliplon", 0, "longitude of the clip disc center")
	clipRadiusKm = flag.Float64("clipradius", 0, "clip disc radius in km, 0 disables clipping")
	kvPath       = flag.String("kvpath", "", "badger directory for the snap index, empty = in-memory")
	workers      = flag.Int("workers", 0, "per-origin search parallelism, 0 = GOMAXPROCS")
	memprofile   = flag.String("memprofile", "", "write memory profile to this file")
)

func main() {
	flag.Parse()

	parser := osmparser.NewParser()
	lines, pois, err := parser.Parse(*mapFile)
	if err != nil {
		log.Fatal(err)
	}

	var clipper geometry.Clipper = geometry.NoClip{}
	if *clipRadiusKm > 0 {
		clipper = geometry.NewDisc(*clipLat, *clipLon, *clipRadiusKm)
	}

	b := builder.NewBuilder(builder.DefaultEpsilonDeg, builder.KeepSelfLoop)
	gradient := costmodel.ConstantGradient(0)
	for _, line := range lines {
		for _, piece := range geometry.Normalize([]orb.Geometry{line.Geometry}, clipper) {
			seg, err := costmodel.BuildSegment(geometry.ToCoordinates(piece), gradient, line.Tags)
			if err != nil && !isDegenerate(err) {
				log.Fatal(err)
			}
			b.AddSegment(seg)
		}
	}

	g, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	g, err = topology.Subdivide(g, builder.DefaultEpsilonDeg)
	if err != nil {
		log.Fatal(err)
	}

	g, stats, err := topology.LargestComponent(g)
	if err != nil {
		log.Fatal(err)
	}

	recordMemProfile(memprofile, "graph_build")

	opts := badger.DefaultOptions(*kvPath)
	if *kvPath == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal(err)
	}

	kvDB := kv.NewKVDB(db)
	defer kvDB.Close()

	if err := kvDB.BuildCellIndexedEdges(context.Background(), g); err != nil {
		log.Fatal(err)
	}

	engine := accessibility.NewEngine(g, kv.NewH3Snapper(kvDB, g, snap.DefaultMaxRadiusKm))
	if *workers > 0 {
		engine.SetWorkers(*workers)
	}

	accessibilitySvc := service.NewAccessibilityService(engine, g, pois, stats)
	recordMemProfile(memprofile, "service_init")

	reg := prometheus.NewRegistry()
	m := rest.NewMetrics(reg)

	r := chi.NewRouter()

	r.Use(middleware.Logger)

	r.Use(rest.PromeHttpMiddleware(m)) // prometheus http middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Mount("/debug", middleware.Profiler())

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	rest.AccessibilityRouter(r, accessibilitySvc, m)

	fmt.Printf("\naccessibility engine ready: %d node(s), %d edge(s)", g.NumNodes(), g.NumEdges())
	fmt.Printf("\nserver started at %s\n", *listenAddr)

	log.Fatal(http.ListenAndServe(*listenAddr, r))
}

func isDegenerate(err error) bool {
	return errors.Is(err, costmodel.ErrDegenerateSegment)
}

func recordMemProfile(memprofile *string, name string) {
	if *memprofile != "" {
		*memprofile = strings.Replace(*memprofile, ".mprof", fmt.Sprintf("%s.mprof", name), -1)
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}
}
