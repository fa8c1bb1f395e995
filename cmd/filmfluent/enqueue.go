package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/metrics"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/queue"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/storage"
	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

type enqueueOptions struct {
	fromStorage      bool
	prefix           string
	includeStopwords bool
	saveJSON         bool
	priority         int
}

func newEnqueueCmd(root *rootOptions) *cobra.Command {
	opts := &enqueueOptions{}

	cmd := &cobra.Command{
		Use:   "enqueue [path|key]...",
		Short: "Queue subtitle files or storage objects for the worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && opts.prefix == "" {
				return fmt.Errorf("nothing to enqueue: pass paths, keys or --prefix")
			}

			cfg, logger, err := root.load()
			if err != nil {
				return err
			}

			source := models.JobSourceFile
			var refs []string
			if opts.fromStorage || opts.prefix != "" {
				source = models.JobSourceStorage
				stor, err := storage.New(cfg.Storage)
				if err != nil {
					return err
				}
				refs, err = objectRefs(cmd.Context(), stor, opts.prefix, args)
				if err != nil {
					return err
				}
			} else {
				refs, err = fileRefs(args)
				if err != nil {
					return err
				}
			}

			q, err := queue.New(cfg.Queue)
			if err != nil {
				return err
			}
			defer q.Close()

			for _, ref := range refs {
				job := queue.NewJob(source, ref, opts.includeStopwords, opts.saveJSON)
				job.Priority = opts.priority
				if err := q.PublishJob(cmd.Context(), job); err != nil {
					return err
				}
				metrics.RecordJobCreated(source)
				logger.LogJobEvent(job.ID, "queued", job.Status, map[string]interface{}{"ref": ref})
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", job.ID, ref)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.fromStorage, "storage", false, "arguments are object keys or s3:// references")
	f.StringVar(&opts.prefix, "prefix", "", "queue every .srt object under this storage prefix")
	f.BoolVar(&opts.includeStopwords, "include-stopwords", false, "keep stopwords in word frequencies")
	f.BoolVar(&opts.saveJSON, "json", false, "save a JSON export of each analysis")
	f.IntVar(&opts.priority, "priority", models.JobPriorityNormal, "job priority, 0-10")
	return cmd
}

// fileRefs expands directories to the subtitle files inside them and makes
// every path absolute so workers on the same host can open it
func fileRefs(args []string) ([]string, error) {
	var refs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}

		paths := []string{arg}
		if info.IsDir() {
			paths, err = pipeline.FindSubtitles(arg)
			if err != nil {
				return nil, err
			}
		}

		for _, p := range paths {
			abs, err := filepath.Abs(p)
			if err != nil {
				return nil, err
			}
			refs = append(refs, abs)
		}
	}
	return refs, nil
}

type subtitleLister interface {
	Bucket() string
	ListSubtitles(ctx context.Context, prefix string) ([]string, error)
}

func objectRefs(ctx context.Context, stor subtitleLister, prefix string, args []string) ([]string, error) {
	var refs []string
	if prefix != "" {
		keys, err := stor.ListSubtitles(ctx, prefix)
		if err != nil {
			return nil, err
		}
		refs = append(refs, keys...)
	}
	for _, arg := range args {
		key, err := storage.ObjectKey(stor.Bucket(), arg)
		if err != nil {
			return nil, err
		}
		refs = append(refs, key)
	}
	return refs, nil
}
