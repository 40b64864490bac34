package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rueckstiess/mconfcheck/internal/catalog"
	"github.com/rueckstiess/mconfcheck/internal/config"
	"github.com/rueckstiess/mconfcheck/internal/mcerr"
	"github.com/rueckstiess/mconfcheck/internal/reconstruct"
	"github.com/rueckstiess/mconfcheck/internal/report"
)

var log = logrus.New()

// cmdCheck is the tool's single subcommand: audit one or more catalogs'
// integrity, then, if two or more are given, compare their chunk
// distributions and report the last moment they agreed.
type cmdCheck struct {
	Timeout            time.Duration `long:"timeout" default:"30s" description:"per-catalog connection timeout"`
	StrictSplitCompare bool          `long:"strict-split-compare" description:"treat a right-side split mismatch as fatal, not just logged"`

	Args struct {
		URIs []string `positional-arg-name:"catalog-uri" required:"1"`
	} `positional-args:"yes"`
}

func (cmd *cmdCheck) Execute(_ []string) error {
	log.WithFields(logrus.Fields{"catalogs": len(cmd.Args.URIs)}).Info("mconfcheck starting")

	uris := make([]config.CatalogURI, 0, len(cmd.Args.URIs))
	for _, raw := range cmd.Args.URIs {
		u, err := config.ParseURI(raw)
		if err != nil {
			log.Error(err)
			os.Exit(1)
		}
		uris = append(uris, u)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	accs := make([]*catalog.Accessor, 0, len(uris))
	for _, u := range uris {
		client, err := connect(ctx, u)
		if err != nil {
			log.WithField("catalog", u.String()).Error(err)
			os.Exit(2)
		}
		defer client.Disconnect(ctx)
		accs = append(accs, catalog.New(u.Addr()+"/"+u.Database, client))
	}

	opts := reconstruct.DefaultOptions()
	opts.StrictSplitCompare = cmd.StrictSplitCompare
	opts.Logger = log

	collRows, err := report.CompareCollections(ctx, accs)
	if err != nil {
		log.Error(err)
		os.Exit(2)
	}
	report.PrintCollectionAgreement(log, collRows)

	namespaces := liveNamespaces(collRows)

	for _, acc := range accs {
		report.PrintIntegrity(log, report.CheckIntegrity(ctx, acc, namespaces))
	}

	if len(accs) >= 2 {
		for _, ns := range namespaces {
			report.PrintChunkAgreement(log, report.CompareChunks(ctx, accs, ns, opts))
		}
	}

	return nil
}

// liveNamespaces returns the namespaces present (non-dropped in at least one
// catalog) among the collection-agreement rows.
func liveNamespaces(rows []report.CollectionAgreement) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		for _, present := range r.PerCatalog {
			if present {
				out = append(out, r.Namespace)
				break
			}
		}
	}
	return out
}

func connect(ctx context.Context, u config.CatalogURI) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(u.String()))
	if err != nil {
		return nil, fmt.Errorf("connect: %v: %w", err, mcerr.ErrCatalogUnreachable)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping: %v: %w", err, mcerr.ErrCatalogUnreachable)
	}
	return client, nil
}

func main() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var cmd cmdCheck
	parser := flags.NewParser(nil, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "mconfcheck"

	if _, err := parser.AddCommand("check", "Audit and reconstruct sharded cluster chunk-distribution history", "", &cmd); err != nil {
		log.Fatalf("add command: %v", err)
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
