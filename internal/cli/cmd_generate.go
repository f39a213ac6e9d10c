package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/clipboard"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/engine"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/errors"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/renderer"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/service"
)

// wordFlags are the live-word inputs shared by realize, generate and batch
type wordFlags struct {
	words     []string
	text      string
	locked    []string
	preselect []string
}

func (f *wordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.words, "word", "w", nil, "candidate word as text:POS[,POS] (POS is tagged when omitted)")
	cmd.Flags().StringVar(&f.text, "words", "", "free text whose tagged words become candidates")
	cmd.Flags().StringSliceVar(&f.locked, "lock", nil, "candidate ids that must be used")
	cmd.Flags().StringSliceVar(&f.preselect, "preselect", nil, "candidate ids tried first")
}

// params resolves the flags into command parameters, tagging words
// given without a part of speech
func (f *wordFlags) params(ctx context.Context, c *CLI, params map[string]interface{}) error {
	var candidates []interface{}
	for _, spec := range f.words {
		word, err := c.parseWord(ctx, spec)
		if err != nil {
			return err
		}
		candidates = append(candidates, word)
	}
	if strings.TrimSpace(f.text) != "" {
		words, err := c.tagText(ctx, f.text)
		if err != nil {
			return err
		}
		candidates = append(candidates, words...)
	}
	if len(candidates) > 0 {
		params["candidates"] = candidates
	}
	if len(f.locked) > 0 {
		params["locked"] = f.locked
	}
	if len(f.preselect) > 0 {
		params["preselect"] = f.preselect
	}
	return nil
}

// parseWord reads "text:POS[,POS]"; a bare word is tagged by the analyzer
func (c *CLI) parseWord(ctx context.Context, spec string) (map[string]interface{}, error) {
	text, tags, hasTags := strings.Cut(spec, ":")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.ValidationError(fmt.Sprintf("empty candidate word in %q", spec))
	}
	if !hasTags {
		words, err := c.tagText(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(words) == 0 {
			return nil, errors.ValidationError(fmt.Sprintf("could not tag %q", text))
		}
		return words[0].(map[string]interface{}), nil
	}
	var pos []interface{}
	for _, tag := range strings.Split(tags, ",") {
		if tag = strings.ToUpper(strings.TrimSpace(tag)); tag != "" {
			pos = append(pos, tag)
		}
	}
	return map[string]interface{}{"id": text, "text": text, "pos": pos}, nil
}

// tagText turns every word of text into a candidate carrying its tag and lemma
func (c *CLI) tagText(ctx context.Context, text string) ([]interface{}, error) {
	analysis, err := c.service.Analyzer().Analyze(ctx, text)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to tag words")
	}
	var out []interface{}
	for _, tok := range analysis.Tokens {
		if tok.POS == "" || tok.POS == "PUNCT" {
			continue
		}
		out = append(out, map[string]interface{}{
			"id":    tok.Value,
			"text":  tok.Value,
			"lemma": tok.Lemma,
			"pos":   []interface{}{tok.POS},
		})
	}
	return out, nil
}

// poolFlags are the template pool filters shared by generate and batch
type poolFlags struct {
	expression string
	pool       string
	query      string
	templates  []string
	weights    map[string]string
}

func (f *poolFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.expression, "expr", "e", "", "boolean tag expression, e.g. \"nature AND NOT water\"")
	cmd.Flags().StringVar(&f.pool, "pool", "", "saved pool name")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "fuzzy text query")
	cmd.Flags().StringSliceVarP(&f.templates, "template", "t", nil, "explicit template ids")
	cmd.Flags().StringToStringVar(&f.weights, "weight", nil, "template weight overrides, id=weight")
}

func (f *poolFlags) params(params map[string]interface{}) error {
	if f.expression != "" {
		params["expression"] = f.expression
	}
	if f.pool != "" {
		params["pool"] = f.pool
	}
	if f.query != "" {
		params["query"] = f.query
	}
	if len(f.templates) > 0 {
		params["template_ids"] = f.templates
	}
	if len(f.weights) > 0 {
		weights := make(map[string]interface{}, len(f.weights))
		for id, raw := range f.weights {
			w, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return errors.ValidationError(fmt.Sprintf("invalid weight for %s: %q", id, raw))
			}
			weights[id] = w
		}
		params["weights"] = weights
	}
	return nil
}

// outputFlags choose how a realization is printed
type outputFlags struct {
	format string
	copy   bool
	log    bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", renderer.FormatText, "output format: text, markdown, trace or json")
	cmd.Flags().BoolVarP(&f.copy, "copy", "c", false, "copy the generated text to the clipboard")
	cmd.Flags().BoolVar(&f.log, "log", false, "print the strategy log after realizing")
}

// beforeRealize turns on strategy logging for this process when --log is set
func (c *CLI) beforeRealize(ctx context.Context, out outputFlags) error {
	if !out.log {
		return nil
	}
	params := c.sessionParams()
	params["enabled"] = true
	_, err := c.run(ctx, "set-logging", params)
	return err
}

// printRealization renders a realization in the chosen format
func (c *CLI) printRealization(ctx context.Context, r *engine.Realization, out outputFlags) error {
	format := out.format
	if c.jsonOut {
		format = renderer.FormatJSON
	}

	rend := renderer.NewRenderer(r, terminalWidth())
	var text string
	var err error
	switch format {
	case renderer.FormatMarkdown:
		text, err = rend.RenderTerminal()
	default:
		text, err = rend.Render(format)
	}
	if err != nil {
		return errors.ValidationError(err.Error())
	}
	fmt.Fprintln(c.out, strings.TrimRight(text, "\n"))

	if out.copy {
		msg, err := clipboard.CopyWithFallback(r.Surface)
		if err != nil {
			fmt.Fprintf(c.err, "Warning: %v\n", err)
		} else {
			fmt.Fprintln(c.err, msg)
		}
	}
	if out.log {
		return c.printLogs(ctx)
	}
	return nil
}

func (c *CLI) realizeCommand() *cobra.Command {
	var words wordFlags
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "realize <template>",
		Short: "Realize one template with the session's active profile",
		Example: `  simplethink realize walk
  simplethink realize walk -w cat:NOUN -w sleep:VERB --format trace
  simplethink realize walk --words "the old dog slept" --lock dog`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			params := c.sessionParams()
			params["template"] = args[0]
			if err := words.params(ctx, c, params); err != nil {
				return err
			}
			if err := c.beforeRealize(ctx, out); err != nil {
				return err
			}
			result, err := c.run(ctx, "realize", params)
			if err != nil {
				return err
			}
			return c.printRealization(ctx, result.Data.(*engine.Realization), out)
		},
	}
	words.register(cmd)
	out.register(cmd)
	return cmd
}

func (c *CLI) generateCommand() *cobra.Command {
	var words wordFlags
	var pool poolFlags
	var out outputFlags
	var sessions []string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draw a template from the pool and realize it",
		Example: `  simplethink generate --expr "nature AND NOT water"
  simplethink generate --pool wet --words "rain falls softly"
  simplethink generate --sessions alice,bob`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			params := c.sessionParams()
			if err := words.params(ctx, c, params); err != nil {
				return err
			}
			if err := pool.params(params); err != nil {
				return err
			}
			if len(sessions) > 0 {
				return c.generateAcross(ctx, sessions, params, out)
			}
			if err := c.beforeRealize(ctx, out); err != nil {
				return err
			}
			result, err := c.run(ctx, "generate", params)
			if err != nil {
				return err
			}
			return c.printRealization(ctx, result.Data.(*engine.Realization), out)
		},
	}
	words.register(cmd)
	pool.register(cmd)
	out.register(cmd)
	cmd.Flags().StringSliceVar(&sessions, "sessions", nil, "generate once in each of these sessions, in parallel")
	return cmd
}

// generateAcross converts the generate parameters to options and runs one
// generation per session in parallel
func (c *CLI) generateAcross(ctx context.Context, sessions []string, params map[string]interface{}, out outputFlags) error {
	var opts service.GenerateOptions
	if expr, ok := params["expression"].(string); ok {
		opts.Expression = expr
	}
	if name, ok := params["pool"].(string); ok {
		opts.Pool = name
	}
	if q, ok := params["query"].(string); ok {
		opts.Query = q
	}
	if ids, ok := params["template_ids"].([]string); ok {
		opts.TemplateIDs = ids
	}
	if weights, ok := params["weights"].(map[string]interface{}); ok {
		opts.Weights = make(map[string]float64, len(weights))
		for id, w := range weights {
			opts.Weights[id] = w.(float64)
		}
	}
	if raw, ok := params["candidates"].([]interface{}); ok {
		for _, item := range raw {
			word := item.(map[string]interface{})
			cw := models.CandidateWord{ID: word["id"].(string), Text: word["text"].(string)}
			if lemma, ok := word["lemma"].(string); ok {
				cw.Lemma = lemma
			}
			for _, p := range word["pos"].([]interface{}) {
				cw.POS = append(cw.POS, p.(string))
			}
			opts.Candidates = append(opts.Candidates, cw)
		}
	}

	results, err := c.service.GenerateAcrossSessions(ctx, sessions, opts)
	if err != nil {
		return err
	}
	if c.jsonOut {
		return c.printJSON(results)
	}
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(c.out, "[%s] ", id)
		if err := c.printRealization(ctx, results[id], outputFlags{format: out.format}); err != nil {
			return err
		}
	}
	return nil
}

func (c *CLI) batchCommand() *cobra.Command {
	var words wordFlags
	var pool poolFlags
	var count int
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate several distinct texts",
		Example: `  simplethink batch -n 10 --expr urban
  simplethink batch -n 5 -t walk --words "cat dog bird"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			params := c.sessionParams()
			params["count"] = count
			if err := words.params(ctx, c, params); err != nil {
				return err
			}
			if err := pool.params(params); err != nil {
				return err
			}
			result, err := c.run(ctx, "batch", params)
			if err != nil {
				return err
			}
			batch := result.Data.(*engine.BatchResult)
			if c.jsonOut {
				text, err := renderer.RenderBatchJSON(batch)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.out, text)
				return nil
			}
			// the warning already went to stderr
			fmt.Fprint(c.out, renderer.RenderBatch(&engine.BatchResult{Items: batch.Items, Requested: batch.Requested}))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of distinct texts")
	words.register(cmd)
	pool.register(cmd)
	return cmd
}

// decodeScalar parses a key=value right-hand side as YAML
func decodeScalar(raw string) (interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	var v interface{}
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}
