// Package report renders the CLI's three output sections: per-catalog
// integrity, cross-catalog collection agreement, and cross-catalog chunk
// agreement with last-common-moment.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rueckstiess/mconfcheck/internal/catalog"
	"github.com/rueckstiess/mconfcheck/internal/compare"
	"github.com/rueckstiess/mconfcheck/internal/distribution"
	"github.com/rueckstiess/mconfcheck/internal/reconstruct"
)

// NamespaceIntegrity is one namespace's ChunkDistribution.Check outcome for
// one catalog.
type NamespaceIntegrity struct {
	Namespace string
	OK        bool
	Messages  []string
}

// CatalogIntegrity is the per-catalog integrity section.
type CatalogIntegrity struct {
	Catalog    string
	Namespaces []NamespaceIntegrity
}

// CollectionAgreement is one namespace's cross-catalog presence/dropped-state
// agreement, keyed by catalog label.
type CollectionAgreement struct {
	Namespace  string
	Agree      bool
	PerCatalog map[string]bool
}

// ChunkAgreement is one namespace's cross-catalog chunk-distribution
// agreement outcome.
type ChunkAgreement struct {
	Namespace  string
	Agree      bool
	LastCommon distribution.Time
	Err        error
}

// CheckIntegrity builds the per-catalog integrity section by running
// ChunkDistribution.Check against the live snapshot of every namespace in
// namespaces.
func CheckIntegrity(ctx context.Context, acc *catalog.Accessor, namespaces []string) CatalogIntegrity {
	result := CatalogIntegrity{Catalog: acc.Label}
	for _, ns := range namespaces {
		d, err := acc.Snapshot(ctx, ns)
		if err != nil {
			result.Namespaces = append(result.Namespaces, NamespaceIntegrity{
				Namespace: ns,
				OK:        false,
				Messages:  []string{err.Error()},
			})
			continue
		}
		ok, msgs := d.Check()
		result.Namespaces = append(result.Namespaces, NamespaceIntegrity{Namespace: ns, OK: ok, Messages: msgs})
	}
	return result
}

// CompareCollections builds the cross-catalog collection agreement section:
// the union of every namespace seen by any catalog, checked for
// presence/dropped-state agreement across all of them. Grounded on
// mconfcheck.py's _compare_collections.
func CompareCollections(ctx context.Context, accs []*catalog.Accessor) ([]CollectionAgreement, error) {
	perCatalog := make([]map[string]bool, len(accs))
	all := map[string]struct{}{}

	for i, acc := range accs {
		cols, err := acc.Collections(ctx)
		if err != nil {
			return nil, fmt.Errorf("report: collections for %s: %w", acc.Label, err)
		}
		present := make(map[string]bool, len(cols))
		for _, c := range cols {
			present[c.Namespace] = !c.Dropped
			all[c.Namespace] = struct{}{}
		}
		perCatalog[i] = present
	}

	namespaces := make([]string, 0, len(all))
	for ns := range all {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	rows := make([]CollectionAgreement, 0, len(namespaces))
	for _, ns := range namespaces {
		row := CollectionAgreement{Namespace: ns, PerCatalog: make(map[string]bool, len(accs))}
		var first *bool
		agree := true
		for i, acc := range accs {
			present := perCatalog[i][ns]
			row.PerCatalog[acc.Label] = present
			if first == nil {
				f := present
				first = &f
			} else if *first != present {
				agree = false
			}
		}
		row.Agree = agree
		rows = append(rows, row)
	}
	return rows, nil
}

// CompareChunks runs the CatalogComparator for one namespace across all
// catalogs and reports whether they currently agree or the last moment they
// did.
func CompareChunks(ctx context.Context, accs []*catalog.Accessor, namespace string, opts reconstruct.Options) ChunkAgreement {
	sources := make([]compare.Source, len(accs))
	for i, acc := range accs {
		sources[i] = acc
	}
	result, err := compare.CompareNamespace(ctx, sources, namespace, opts)
	if err != nil {
		return ChunkAgreement{Namespace: namespace, Agree: false, Err: err}
	}
	return ChunkAgreement{
		Namespace:  namespace,
		Agree:      result.Time.PosInf,
		LastCommon: result.Time,
	}
}

// PrintIntegrity logs the per-catalog integrity section, one structured
// line per namespace.
func PrintIntegrity(log *logrus.Logger, result CatalogIntegrity) {
	log.Infof("=== catalog %s: integrity ===", result.Catalog)
	for _, ns := range result.Namespaces {
		status := "ok"
		if !ns.OK {
			status = "fail"
		}
		log.WithFields(logrus.Fields{
			"namespace": ns.Namespace,
			"status":    status,
		}).Info(strings.Join(ns.Messages, "; "))
	}
}

// PrintCollectionAgreement logs the cross-catalog collection agreement
// section.
func PrintCollectionAgreement(log *logrus.Logger, rows []CollectionAgreement) {
	log.Info("=== cross-catalog collection agreement ===")
	for _, row := range rows {
		fields := logrus.Fields{"namespace": row.Namespace}
		for catalogLabel, present := range row.PerCatalog {
			fields[catalogLabel] = present
		}
		if row.Agree {
			log.WithFields(fields).Info("agree")
		} else {
			log.WithFields(fields).Warn("disagree")
		}
	}
}

// PrintChunkAgreement logs one namespace's cross-catalog chunk agreement
// outcome.
func PrintChunkAgreement(log *logrus.Logger, row ChunkAgreement) {
	fields := logrus.Fields{"namespace": row.Namespace}
	switch {
	case row.Err != nil:
		log.WithFields(fields).Warnf("chunk comparison failed: %v", row.Err)
	case row.Agree:
		log.WithFields(fields).Info("catalogs agree on current chunk distribution")
	default:
		fields["lastCommon"] = row.LastCommon.String()
		log.WithFields(fields).Warn("catalogs diverge; metadata was last identical at this moment")
	}
}
