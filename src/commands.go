package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/honeycombio/beeline-go"
	"github.com/honeycombio/beeline-go/wrappers/hnynethttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"YakinikuMap/src/cards"
	"YakinikuMap/src/finder"
	"YakinikuMap/src/handlers"
	"YakinikuMap/src/locate"
	"YakinikuMap/src/places"
	"YakinikuMap/src/token"
	"YakinikuMap/src/types"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			beeline.Init(beeline.Config{
				WriteKey:    cfg.HoneycombKey,
				Dataset:     "yakiniku",
				ServiceName: "yakiniku-map",
			})
			defer beeline.Close()
			http.DefaultTransport = hnynethttp.WrapRoundTripper(http.DefaultTransport)

			b, err := newBackends(cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			store, closeNotes, err := newNoteStore(cfg)
			if err != nil {
				return err
			}
			defer closeNotes()

			f := &finder.Finder{
				Places: places.NewClient(b.searcher, cfg.SearchQuery, cfg.SearchRadius),
				Notes:  store,
			}
			srv, err := handlers.NewServer(f, store, token.NewCodec(signingKey(cfg)))
			if err != nil {
				return err
			}
			srv.Photos = b.photos
			srv.Maps = b.maps

			log.Info().Str("addr", cfg.ListenAddr).Str("search", cfg.SearchBackend).Str("notes", cfg.NotesBackend).Msg("server started")
			return http.ListenAndServe(cfg.ListenAddr, hnynethttp.WrapHandler(srv.Routes()))
		},
	}

	cmd.Flags().StringVarP(&cfg.ListenAddr, "addr", "a", cfg.ListenAddr, "server address")
	return cmd
}

func searchCmd() *cobra.Command {
	var lat, lng float64

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search around a coordinate and print the cards",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newBackends(cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			store, closeNotes, err := newNoteStore(cfg)
			if err != nil {
				return err
			}
			defer closeNotes()

			// without a position there is no device to ask
			var g locate.Geolocator
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
				g = locate.Fixed{Lat: lat, Lng: lng}
			}

			f := &finder.Finder{
				Places: places.NewClient(b.searcher, cfg.SearchQuery, cfg.SearchRadius),
				Notes:  store,
			}
			result := f.Start(cmd.Context(), g)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Center: %s (zoom %d)\n", result.Session.Center, result.Session.Zoom)
			fmt.Fprintln(out, result.Board.Status)
			for i, c := range result.Board.Cards {
				printCard(cmd, i+1, c)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", types.DefaultCoordinate.Lat, "latitude")
	cmd.Flags().Float64Var(&lng, "lng", types.DefaultCoordinate.Lng, "longitude")
	cmd.Flags().StringVarP(&cfg.SearchQuery, "query", "q", cfg.SearchQuery, "search term")
	cmd.Flags().UintVarP(&cfg.SearchRadius, "radius", "r", cfg.SearchRadius, "search radius in meters")
	return cmd
}

func printCard(cmd *cobra.Command, n int, c cards.Card) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%d. %s  [%s]\n", n, c.Name, c.PlaceID)
	fmt.Fprintf(out, "   %s (%.1f km)\n", c.Address, c.DistanceKm)
	if c.Rating != nil {
		fmt.Fprintf(out, "   Google rating: %.1f / 5.0 (%d)\n", *c.Rating, c.RatingCount)
	}
	if !c.HasPhoto() {
		fmt.Fprintf(out, "   %s\n", cards.NoPhoto)
	}
	if c.Note.Rating != 0 || c.Note.Memo != "" {
		fmt.Fprintf(out, "   My rating: %g / 5.0  %s\n", c.Note.Rating, strings.ReplaceAll(c.Note.Memo, "\n", " "))
	}
}

func noteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Read or write your note for a place",
	}
	cmd.AddCommand(noteGetCmd())
	cmd.AddCommand(noteSetCmd())
	return cmd
}

func noteGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [place-id]",
		Short: "Show the note for a place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeNotes, err := newNoteStore(cfg)
			if err != nil {
				return err
			}
			defer closeNotes()

			note, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rating: %g\nMemo: %s\n", note.Rating, note.Memo)
			return nil
		},
	}
}

func noteSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [place-id] [rating] [memo...]",
		Short: "Replace the note for a place",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeNotes, err := newNoteStore(cfg)
			if err != nil {
				return err
			}
			defer closeNotes()

			card := cards.Card{PlaceID: args[0], Name: args[0]}
			note, msg, err := cards.Wire(card, store, nil).Save(cmd.Context(), args[1], strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (rating %g)\n", msg, note.Rating)
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file.tsv]",
		Short: "Load places into the Elasticsearch catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.SearchBackend = "elastic"
			b, err := newBackends(cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.elastic.CreateIndexWithMapping(cmd.Context()); err != nil {
				return err
			}
			n, err := b.elastic.LoadData(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d places into %q\n", n, b.elastic.Index)
			return nil
		},
	}
}
