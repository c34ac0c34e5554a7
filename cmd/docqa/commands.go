package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bububa/docqa/agents/rag"
	"github.com/bububa/docqa/components/document"
	"github.com/bububa/docqa/components/vectordb"
)

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file|url|s3://bucket/key>...",
		Short: "Chunk, embed and store documents in the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			pipeline, err := a.newRAG(cmd.Context(), false)
			if err != nil {
				return err
			}
			idx, err := a.index(cmd.Context())
			if err != nil {
				return err
			}
			docs, err := a.loadAll(cmd, args)
			if err != nil {
				return err
			}
			usage, err := pipeline.AddDocuments(cmd.Context(), idx, docs...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, doc := range docs {
				fmt.Fprintf(out, "%s\t%s\n", doc.ID, source(doc))
			}
			fmt.Fprintf(out, "index %s: %d records, %d embedding tokens\n", idx.Name(), idx.Count(), usage.Total())
			return nil
		},
	}
}

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Print the chunks closest to a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			pipeline, idx, err := a.prepare(cmd, false)
			if err != nil {
				return err
			}
			topK, _ := cmd.Flags().GetInt("top")
			var opts []vectordb.SearchOption
			if cmd.Flags().Changed("min-score") {
				minScore, _ := cmd.Flags().GetFloat64("min-score")
				opts = append(opts, vectordb.SearchWithMinScore(minScore))
			}
			results, _, err := pipeline.Search(cmd.Context(), idx, args[0], topK, opts...)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			return printResults(cmd.OutOrStdout(), output, results)
		},
	}
	cmd.Flags().Int("top", rag.DefaultTopK, "Maximum number of chunks")
	cmd.Flags().Float64("min-score", 0, "Drop chunks scoring below this cosine similarity")
	cmd.Flags().String("output", "text", "Output format: text or yaml")
	cmd.Flags().StringSlice("doc", nil, "Documents to ingest before searching")
	return cmd
}

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			pipeline, idx, err := a.prepare(cmd, true)
			if err != nil {
				return err
			}
			answer, usage, err := pipeline.Ask(cmd.Context(), idx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if output, _ := cmd.Flags().GetString("output"); output == "yaml" {
				return yaml.NewEncoder(out).Encode(answer)
			}
			fmt.Fprintln(out, answer.Text)
			fmt.Fprintf(out, "\nsources: %v (%d tokens)\n", rag.Tags(answer.Sources), usage.Total())
			return nil
		},
	}
	cmd.Flags().String("output", "text", "Output format: text or yaml")
	cmd.Flags().StringSlice("doc", nil, "Documents to ingest before answering")
	return cmd
}

func chunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk <file|url|s3://bucket/key>",
		Short: "Print the chunks of a document without embedding them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			doc, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			chunks, err := a.chunker.Chunk(cmd.Context(), doc.Text)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if output, _ := cmd.Flags().GetString("output"); output == "yaml" {
				return yaml.NewEncoder(out).Encode(chunks)
			}
			for i, chunk := range chunks {
				fmt.Fprintf(out, "#%d [%d tokens, sentences %d-%d]\n%s\n\n", i, chunk.TokenSize, chunk.StartSentence, chunk.EndSentence, chunk.Text)
			}
			return nil
		},
	}
	cmd.Flags().String("output", "text", "Output format: text or yaml")
	return cmd
}

// prepare builds the pipeline and ingests the --doc sources into the index.
func (a *app) prepare(cmd *cobra.Command, withCompleter bool) (*rag.RAG, *vectordb.Index, error) {
	pipeline, err := a.newRAG(cmd.Context(), withCompleter)
	if err != nil {
		return nil, nil, err
	}
	idx, err := a.index(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	sources, _ := cmd.Flags().GetStringSlice("doc")
	if len(sources) > 0 {
		docs, err := a.loadAll(cmd, sources)
		if err != nil {
			return nil, nil, err
		}
		if _, err := pipeline.AddDocuments(cmd.Context(), idx, docs...); err != nil {
			return nil, nil, err
		}
	}
	if idx.State() != vectordb.Ready {
		return nil, nil, errors.Wrapf(vectordb.ErrNotInitialized, "index %s is empty, ingest documents first", idx.Name())
	}
	return pipeline, idx, nil
}

func (a *app) loadAll(cmd *cobra.Command, sources []string) ([]*document.Document, error) {
	docs := make([]*document.Document, 0, len(sources))
	for _, src := range sources {
		doc, err := a.load(cmd.Context(), src)
		if err != nil {
			return nil, errors.Wrap(err, src)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func source(doc *document.Document) string {
	for _, k := range []string{document.MetaFilename, document.MetaURL, document.MetaKey} {
		if v := doc.Meta[k]; v != "" {
			return v
		}
	}
	return ""
}

func printResults(w io.Writer, output string, results []vectordb.SearchResult) error {
	switch output {
	case "yaml":
		return yaml.NewEncoder(w).Encode(results)
	case "text":
		for _, res := range results {
			fmt.Fprintf(w, "%.4f\t%s\t%s\n", res.Score, res.Key, res.Text)
		}
		return nil
	}
	return errors.Errorf("unknown output format %q", output)
}
