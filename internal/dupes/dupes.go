package dupes

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"modindex/internal/digest"
	"modindex/internal/filter"
	"modindex/internal/index"
	"modindex/internal/track"
)

// Reader is the read side of an index needed for enumeration. *index.Store
// satisfies it.
type Reader interface {
	AllTracks(ctx context.Context) ([]track.Record, error)
	SharedSampleDigests(ctx context.Context, minTracks int) ([]digest.Digest, error)
	SampleRefsByDigest(ctx context.Context, d digest.Digest) ([]index.SampleRef, error)
}

// Cluster is a group of tracks sharing one identity value.
type Cluster struct {
	Tier    track.ClusterTier `json:"tier" yaml:"tier"`
	Key     string            `json:"key" yaml:"key"`
	Members []track.Record    `json:"members" yaml:"members"`
}

// Clusters groups the index by tier, drops groups smaller than minimum and
// runs the rest through pipeline with the same minimum. A nil pipeline
// applies no predicates. Members are sorted by path and clusters by their
// first member, ties broken by key.
func Clusters(ctx context.Context, r Reader, tier track.ClusterTier, minimum int, pipeline *filter.Pipeline) ([]Cluster, error) {
	minimum = max(minimum, 1)
	if pipeline == nil {
		pipeline = filter.MustCompile(filter.Options{})
	}
	pipeline = pipeline.WithMinimum(minimum)

	var groups map[string][]track.Record
	var err error
	switch tier {
	case track.ClusterExact, track.ClusterPattern:
		groups, err = trackGroups(ctx, r, tier)
	case track.ClusterSample:
		groups, err = sampleGroups(ctx, r, minimum)
	default:
		return nil, fmt.Errorf("clusters: unknown tier %q", tier)
	}
	if err != nil {
		return nil, err
	}

	var clusters []Cluster
	for key, members := range groups {
		if len(members) < minimum {
			continue
		}
		sortByPath(members)
		kept := pipeline.Apply(members)
		if len(kept) == 0 {
			continue
		}
		clusters = append(clusters, Cluster{Tier: tier, Key: key, Members: kept})
	}
	sort.Slice(clusters, func(i, j int) bool {
		a, b := clusters[i].Members[0].Path, clusters[j].Members[0].Path
		if a != b {
			return a < b
		}
		return clusters[i].Key < clusters[j].Key
	})
	return clusters, nil
}

func trackGroups(ctx context.Context, r Reader, tier track.ClusterTier) (map[string][]track.Record, error) {
	records, err := r.AllTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}
	groups := make(map[string][]track.Record)
	for _, record := range records {
		var key string
		if tier == track.ClusterPattern {
			if !record.HasPattern() {
				continue
			}
			key = PatternKey(record.PatternDigest)
		} else {
			key = record.WholeDigest.String()
		}
		groups[key] = append(groups[key], record)
	}
	return groups, nil
}

// sampleGroups maps each shared sample digest to the distinct tracks that
// contain it. Records come from AllTracks so the sample-text gate sees every
// sample of a member.
func sampleGroups(ctx context.Context, r Reader, minimum int) (map[string][]track.Record, error) {
	shared, err := r.SharedSampleDigests(ctx, minimum)
	if err != nil {
		return nil, fmt.Errorf("load shared samples: %w", err)
	}
	if len(shared) == 0 {
		return nil, nil
	}
	records, err := r.AllTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}
	byPath := make(map[string]track.Record, len(records))
	for _, record := range records {
		byPath[record.Path] = record
	}

	groups := make(map[string][]track.Record, len(shared))
	for _, d := range shared {
		refs, err := r.SampleRefsByDigest(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("load sample %s: %w", d.Short(), err)
		}
		seen := make(map[string]struct{}, len(refs))
		key := d.String()
		for _, ref := range refs {
			if _, ok := seen[ref.Track.Path]; ok {
				continue
			}
			seen[ref.Track.Path] = struct{}{}
			member, ok := byPath[ref.Track.Path]
			if !ok {
				member = ref.Track
			}
			groups[key] = append(groups[key], member)
		}
	}
	return groups, nil
}

// PatternKey formats a pattern digest as a fixed-width hex key.
func PatternKey(pattern uint64) string {
	return fmt.Sprintf("%016x", pattern)
}

func sortByPath(records []track.Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
}

// WriteText renders clusters as a stable plain-text listing: one header line
// per cluster followed by indented member paths, clusters separated by a
// blank line.
func WriteText(w io.Writer, clusters []Cluster) error {
	for i, cluster := range clusters {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		header := "[" + string(cluster.Tier) + "] " + cluster.Key + " (" + strconv.Itoa(len(cluster.Members)) + " files)\n"
		if _, err := io.WriteString(w, header); err != nil {
			return err
		}
		for _, member := range cluster.Members {
			if _, err := io.WriteString(w, "  "+member.Path+"\n"); err != nil {
				return err
			}
		}
	}
	return nil
}
