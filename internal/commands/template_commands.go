package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/document"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/service"
)

// TemplateView is a template as returned to interfaces: metadata plus its
// canonical markup
type TemplateView struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Weight      float64   `json:"weight,omitempty"`
	Slots       int       `json:"slots"`
	Markup      string    `json:"markup,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewTemplateView builds the view; withMarkup renders the body
func NewTemplateView(doc *models.TemplateDocument, withMarkup bool) TemplateView {
	v := TemplateView{
		ID:          doc.ID,
		SessionID:   doc.SessionID,
		Name:        doc.Name,
		Description: doc.Description,
		Tags:        doc.Tags,
		Weight:      doc.Weight,
		Slots:       doc.SlotCount(),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	if withMarkup && doc.Blocks != nil {
		v.Markup = document.Render(doc)
	}
	return v
}

func templateViews(docs []*models.TemplateDocument) []TemplateView {
	out := make([]TemplateView, len(docs))
	for i, d := range docs {
		out[i] = NewTemplateView(d, false)
	}
	return out
}

// ListTemplatesCommand lists the templates a session can see, optionally
// narrowed by a tag expression and a fuzzy query
type ListTemplatesCommand struct {
	serviceCommand
	SessionID  string
	Query      string
	Expression string
}

func (c *ListTemplatesCommand) SetParameters(params map[string]interface{}) error {
	c.SessionID = stringParam(params, "session")
	c.Query = stringParam(params, "query")
	c.Expression = stringParam(params, "expression")
	return nil
}

func (c *ListTemplatesCommand) GetName() string {
	return "list-templates"
}

func (c *ListTemplatesCommand) GetDescription() string {
	return "List templates visible to a session, filtered by tag expression or query"
}

func (c *ListTemplatesCommand) Execute(ctx context.Context) (*CommandResult, error) {
	var docs []*models.TemplateDocument
	var err error
	if c.Expression != "" || c.Query != "" {
		docs, err = c.service.ResolvePool(c.SessionID, service.PoolFilter{Expression: c.Expression, Query: c.Query})
		if err != nil && isExhausted(err) {
			docs, err = nil, nil
		}
	} else {
		docs, err = c.service.ListTemplates(c.SessionID)
	}
	if err != nil {
		return nil, err
	}

	return &CommandResult{
		Success: true,
		Data:    templateViews(docs),
		Message: fmt.Sprintf("Found %d templates", len(docs)),
	}, nil
}

// SearchTemplatesCommand performs fuzzy text search on templates
type SearchTemplatesCommand struct {
	serviceCommand
	SessionID string
	Query     string
}

func (c *SearchTemplatesCommand) SetParameters(params map[string]interface{}) error {
	c.SessionID = stringParam(params, "session")
	c.Query = stringParam(params, "query")
	return nil
}

func (c *SearchTemplatesCommand) GetName() string {
	return "search-templates"
}

func (c *SearchTemplatesCommand) GetDescription() string {
	return "Fuzzy search templates by name, id, description and tags"
}

func (c *SearchTemplatesCommand) Execute(ctx context.Context) (*CommandResult, error) {
	docs, err := c.service.SearchTemplates(c.SessionID, c.Query)
	if err != nil {
		return nil, err
	}
	return &CommandResult{
		Success: true,
		Data:    templateViews(docs),
		Message: fmt.Sprintf("Found %d templates matching %q", len(docs), c.Query),
	}, nil
}

// GetTemplateCommand retrieves one template with its markup
type GetTemplateCommand struct {
	serviceCommand
	ID string
}

func (c *GetTemplateCommand) SetParameters(params map[string]interface{}) error {
	c.ID = stringParam(params, "id")
	return nil
}

func (c *GetTemplateCommand) GetName() string {
	return "get-template"
}

func (c *GetTemplateCommand) GetDescription() string {
	return "Get a template by id"
}

func (c *GetTemplateCommand) Execute(ctx context.Context) (*CommandResult, error) {
	doc, err := c.service.GetTemplate(c.ID)
	if err != nil {
		return nil, err
	}
	return &CommandResult{
		Success: true,
		Data:    NewTemplateView(doc, true),
		Message: fmt.Sprintf("Template %s", doc.ID),
	}, nil
}

// CreateTemplateCommand creates a template from bracket markup, or from
// plain text hydrated by the analyzer when mode is "text"
type CreateTemplateCommand struct {
	serviceCommand
	Input service.TemplateInput
	Mode  string
}

func (c *CreateTemplateCommand) SetParameters(params map[string]interface{}) error {
	c.Input = service.TemplateInput{
		ID:          stringParam(params, "id"),
		SessionID:   stringParam(params, "session"),
		Name:        stringParam(params, "name"),
		Description: stringParam(params, "description"),
		Tags:        stringsParam(params, "tags"),
		Weight:      floatParam(params, "weight"),
		Body:        stringParam(params, "body"),
	}
	c.Mode = stringParam(params, "mode")
	return nil
}

func (c *CreateTemplateCommand) GetName() string {
	return "create-template"
}

func (c *CreateTemplateCommand) GetDescription() string {
	return "Create or replace a template from markup or plain text"
}

func (c *CreateTemplateCommand) Execute(ctx context.Context) (*CommandResult, error) {
	var doc *models.TemplateDocument
	var err error
	if c.Mode == "text" {
		doc, err = c.service.CreateTemplateFromText(ctx, c.Input)
	} else {
		doc, err = c.service.CreateTemplateFromMarkup(c.Input)
	}
	if err != nil {
		return nil, err
	}
	return &CommandResult{
		Success: true,
		Data:    NewTemplateView(doc, true),
		Message: fmt.Sprintf("Saved template %s", doc.ID),
	}, nil
}

// DeleteTemplateCommand removes a template
type DeleteTemplateCommand struct {
	serviceCommand
	ID string
}

func (c *DeleteTemplateCommand) SetParameters(params map[string]interface{}) error {
	c.ID = stringParam(params, "id")
	return nil
}

func (c *DeleteTemplateCommand) GetName() string {
	return "delete-template"
}

func (c *DeleteTemplateCommand) GetDescription() string {
	return "Delete a template by id"
}

func (c *DeleteTemplateCommand) Execute(ctx context.Context) (*CommandResult, error) {
	if err := c.service.DeleteTemplate(c.ID); err != nil {
		return nil, err
	}
	return &CommandResult{
		Success: true,
		Data:    map[string]string{"id": c.ID},
		Message: fmt.Sprintf("Deleted template %s", c.ID),
	}, nil
}

// ListPoolsCommand lists saved template pools
type ListPoolsCommand struct {
	serviceCommand
}

func (c *ListPoolsCommand) GetName() string {
	return "list-pools"
}

func (c *ListPoolsCommand) GetDescription() string {
	return "List saved template pools"
}

func (c *ListPoolsCommand) Execute(ctx context.Context) (*CommandResult, error) {
	pools, err := c.service.ListPools()
	if err != nil {
		return nil, err
	}
	return &CommandResult{
		Success: true,
		Data:    pools,
		Message: fmt.Sprintf("Found %d saved pools", len(pools)),
	}, nil
}

// GetPoolCommand returns one saved pool
type GetPoolCommand struct {
	serviceCommand
	Name string
}

func (c *GetPoolCommand) SetParameters(params map[string]interface{}) error {
	c.Name = stringParam(params, "name")
	return nil
}

func (c *GetPoolCommand) GetName() string {
	return "get-pool"
}

func (c *GetPoolCommand) GetDescription() string {
	return "Get a saved template pool by name"
}

func (c *GetPoolCommand) Execute(ctx context.Context) (*CommandResult, error) {
	pool, err := c.service.GetPool(c.Name)
	if err != nil {
		return nil, err
	}
	return &CommandResult{Success: true, Data: pool, Message: fmt.Sprintf("Pool %s", pool.Name)}, nil
}

// SavePoolCommand creates or replaces a saved pool
type SavePoolCommand struct {
	serviceCommand
	Pool models.SavedPool
}

func (c *SavePoolCommand) SetParameters(params map[string]interface{}) error {
	c.Pool = models.SavedPool{
		Name:        stringParam(params, "name"),
		Description: stringParam(params, "description"),
		TextQuery:   stringParam(params, "query"),
		TemplateIDs: stringsParam(params, "template_ids"),
	}
	if expr := stringParam(params, "expression"); expr != "" {
		parsed, err := models.ParseBooleanExpression(expr)
		if err != nil {
			return fmt.Errorf("invalid expression: %w", err)
		}
		c.Pool.Expression = parsed
	}
	return nil
}

func (c *SavePoolCommand) GetName() string {
	return "save-pool"
}

func (c *SavePoolCommand) GetDescription() string {
	return "Save a named template pool (tag expression, query, template ids)"
}

func (c *SavePoolCommand) Execute(ctx context.Context) (*CommandResult, error) {
	if err := c.service.SavePool(c.Pool); err != nil {
		return nil, err
	}
	saved, err := c.service.GetPool(c.Pool.Name)
	if err != nil {
		return nil, err
	}
	return &CommandResult{Success: true, Data: saved, Message: fmt.Sprintf("Saved pool %s", saved.Name)}, nil
}

// DeletePoolCommand removes a saved pool
type DeletePoolCommand struct {
	serviceCommand
	Name string
}

func (c *DeletePoolCommand) SetParameters(params map[string]interface{}) error {
	c.Name = stringParam(params, "name")
	return nil
}

func (c *DeletePoolCommand) GetName() string {
	return "delete-pool"
}

func (c *DeletePoolCommand) GetDescription() string {
	return "Delete a saved template pool"
}

func (c *DeletePoolCommand) Execute(ctx context.Context) (*CommandResult, error) {
	if err := c.service.DeletePool(c.Name); err != nil {
		return nil, err
	}
	return &CommandResult{
		Success: true,
		Data:    map[string]string{"name": c.Name},
		Message: fmt.Sprintf("Deleted pool %s", c.Name),
	}, nil
}
