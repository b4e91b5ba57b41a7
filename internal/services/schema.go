package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/stackgenie/stackgenie-backend/internal/data/repos"
	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/platform/apierr"
	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

type SchemaInput struct {
	Tables        []types.SchemaTable        `json:"tables"`
	Relationships []types.SchemaRelationship `json:"relationships"`
}

// SchemaService edits the table design attached to a project.
type SchemaService interface {
	Get(ctx context.Context, projectID string) (*types.SchemaDesign, error)
	Upsert(ctx context.Context, projectID string, in SchemaInput) (*types.SchemaDesign, error)
	AddTable(ctx context.Context, projectID string, table types.SchemaTable) (*types.SchemaDesign, error)
	UpdateTable(ctx context.Context, projectID, tableName string, table types.SchemaTable) (*types.SchemaDesign, error)
	DeleteTable(ctx context.Context, projectID, tableName string) (*types.SchemaDesign, error)
	AddRelationship(ctx context.Context, projectID string, rel types.SchemaRelationship) (*types.SchemaDesign, error)
	DeleteRelationship(ctx context.Context, projectID string, source, target types.RelationshipEnd) (*types.SchemaDesign, error)
	Prisma(ctx context.Context, projectID string) (string, error)
}

type schemaService struct {
	log        *logger.Logger
	schemaRepo repos.SchemaDesignRepo
	projects   ProjectService
	locks      *keyedMutex
}

func NewSchemaService(log *logger.Logger, schemaRepo repos.SchemaDesignRepo, projects ProjectService) SchemaService {
	return &schemaService{
		log:        log.With("service", "SchemaService"),
		schemaRepo: schemaRepo,
		projects:   projects,
		locks:      newKeyedMutex(),
	}
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func schemaNotFound(projectID string) error {
	return apierr.NotFound("schema_not_found", fmt.Errorf("no schema for project %q", projectID))
}

// authorize checks the caller owns the project the schema belongs to.
func (ss *schemaService) authorize(ctx context.Context, projectID string) error {
	_, err := ss.projects.Get(ctx, projectID)
	return err
}

func (ss *schemaService) Get(ctx context.Context, projectID string) (*types.SchemaDesign, error) {
	if err := ss.authorize(ctx, projectID); err != nil {
		return nil, err
	}
	s, err := ss.schemaRepo.GetByProjectID(dbctx.Context{Ctx: ctx}, projectID)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if s == nil {
		return nil, schemaNotFound(projectID)
	}
	return s, nil
}

func (ss *schemaService) Upsert(ctx context.Context, projectID string, in SchemaInput) (*types.SchemaDesign, error) {
	if err := ss.authorize(ctx, projectID); err != nil {
		return nil, err
	}
	unlock := ss.locks.Lock(projectID)
	defer unlock()
	return ss.write(ctx, projectID, in.Tables, in.Relationships)
}

// mutate applies fn to the stored design under the project lock.
func (ss *schemaService) mutate(ctx context.Context, projectID string, fn func(tables []types.SchemaTable, rels []types.SchemaRelationship) ([]types.SchemaTable, []types.SchemaRelationship, error)) (*types.SchemaDesign, error) {
	if err := ss.authorize(ctx, projectID); err != nil {
		return nil, err
	}
	unlock := ss.locks.Lock(projectID)
	defer unlock()

	cur, err := ss.schemaRepo.GetByProjectID(dbctx.Context{Ctx: ctx}, projectID)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if cur == nil {
		return nil, schemaNotFound(projectID)
	}
	tables, rels, err := fn(append([]types.SchemaTable(nil), cur.Tables...), append([]types.SchemaRelationship(nil), cur.Relationships...))
	if err != nil {
		return nil, err
	}
	return ss.write(ctx, projectID, tables, rels)
}

func (ss *schemaService) write(ctx context.Context, projectID string, tables []types.SchemaTable, rels []types.SchemaRelationship) (*types.SchemaDesign, error) {
	if tables == nil {
		tables = []types.SchemaTable{}
	}
	if rels == nil {
		rels = []types.SchemaRelationship{}
	}
	for i := range rels {
		if rels[i].ID == "" {
			rels[i].ID = "rel-" + uuid.NewString()
		}
	}
	if err := validateSchema(tables, rels); err != nil {
		return nil, err
	}
	ownerID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	out, err := ss.schemaRepo.Upsert(dbctx.Context{Ctx: ctx}, &types.SchemaDesign{
		ProjectID:     projectID,
		OwnerID:       ownerID,
		Tables:        datatypes.JSONSlice[types.SchemaTable](tables),
		Relationships: datatypes.JSONSlice[types.SchemaRelationship](rels),
	})
	if err != nil {
		return nil, fmt.Errorf("save schema: %w", err)
	}
	ss.log.Debug("Schema saved", "project_id", projectID, "tables", len(tables), "relationships", len(rels))
	return out, nil
}

func (ss *schemaService) AddTable(ctx context.Context, projectID string, table types.SchemaTable) (*types.SchemaDesign, error) {
	return ss.mutate(ctx, projectID, func(tables []types.SchemaTable, rels []types.SchemaRelationship) ([]types.SchemaTable, []types.SchemaRelationship, error) {
		return append(tables, table), rels, nil
	})
}

func (ss *schemaService) UpdateTable(ctx context.Context, projectID, tableName string, table types.SchemaTable) (*types.SchemaDesign, error) {
	return ss.mutate(ctx, projectID, func(tables []types.SchemaTable, rels []types.SchemaRelationship) ([]types.SchemaTable, []types.SchemaRelationship, error) {
		idx := tableIndex(tables, tableName)
		if idx < 0 {
			return nil, nil, apierr.NotFound("table_not_found", fmt.Errorf("table %q not found", tableName))
		}
		tables[idx] = table
		if table.Name != tableName {
			for i := range rels {
				if rels[i].Source.Table == tableName {
					rels[i].Source.Table = table.Name
				}
				if rels[i].Target.Table == tableName {
					rels[i].Target.Table = table.Name
				}
			}
		}
		return tables, rels, nil
	})
}

// DeleteTable also drops relationships that referenced the table.
func (ss *schemaService) DeleteTable(ctx context.Context, projectID, tableName string) (*types.SchemaDesign, error) {
	return ss.mutate(ctx, projectID, func(tables []types.SchemaTable, rels []types.SchemaRelationship) ([]types.SchemaTable, []types.SchemaRelationship, error) {
		idx := tableIndex(tables, tableName)
		if idx < 0 {
			return nil, nil, apierr.NotFound("table_not_found", fmt.Errorf("table %q not found", tableName))
		}
		tables = append(tables[:idx], tables[idx+1:]...)
		kept := rels[:0]
		for _, r := range rels {
			if r.Source.Table != tableName && r.Target.Table != tableName {
				kept = append(kept, r)
			}
		}
		return tables, kept, nil
	})
}

func (ss *schemaService) AddRelationship(ctx context.Context, projectID string, rel types.SchemaRelationship) (*types.SchemaDesign, error) {
	return ss.mutate(ctx, projectID, func(tables []types.SchemaTable, rels []types.SchemaRelationship) ([]types.SchemaTable, []types.SchemaRelationship, error) {
		rel.ID = ""
		return tables, append(rels, rel), nil
	})
}

func (ss *schemaService) DeleteRelationship(ctx context.Context, projectID string, source, target types.RelationshipEnd) (*types.SchemaDesign, error) {
	return ss.mutate(ctx, projectID, func(tables []types.SchemaTable, rels []types.SchemaRelationship) ([]types.SchemaTable, []types.SchemaRelationship, error) {
		kept := rels[:0]
		for _, r := range rels {
			if r.Source == source && r.Target == target {
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == len(rels) {
			return nil, nil, apierr.NotFound("relationship_not_found", fmt.Errorf("relationship not found"))
		}
		return tables, kept, nil
	})
}

func (ss *schemaService) Prisma(ctx context.Context, projectID string) (string, error) {
	s, err := ss.Get(ctx, projectID)
	if err != nil {
		return "", err
	}
	return RenderPrisma(s.Tables, s.Relationships), nil
}

func tableIndex(tables []types.SchemaTable, name string) int {
	for i, t := range tables {
		if t.Name == name {
			return i
		}
	}
	return -1
}

func validateSchema(tables []types.SchemaTable, rels []types.SchemaRelationship) error {
	names := map[string]map[string]struct{}{}
	for _, t := range tables {
		if !identPattern.MatchString(t.Name) {
			return apierr.BadRequest("invalid_table", fmt.Errorf("invalid table name %q", t.Name))
		}
		if _, dup := names[t.Name]; dup {
			return apierr.BadRequest("duplicate_table", fmt.Errorf("table %q declared twice", t.Name))
		}
		fields := map[string]struct{}{}
		for _, f := range t.Fields {
			if !identPattern.MatchString(f.Name) {
				return apierr.BadRequest("invalid_field", fmt.Errorf("invalid field name %q in table %q", f.Name, t.Name))
			}
			if strings.TrimSpace(f.Type) == "" {
				return apierr.BadRequest("invalid_field", fmt.Errorf("field %s.%s has no type", t.Name, f.Name))
			}
			if _, dup := fields[f.Name]; dup {
				return apierr.BadRequest("duplicate_field", fmt.Errorf("field %s.%s declared twice", t.Name, f.Name))
			}
			fields[f.Name] = struct{}{}
		}
		names[t.Name] = fields
	}
	for _, r := range rels {
		if !r.Type.Valid() {
			return apierr.BadRequest("invalid_relationship", fmt.Errorf("unknown relationship type %q", r.Type))
		}
		for _, end := range []types.RelationshipEnd{r.Source, r.Target} {
			fields, ok := names[end.Table]
			if !ok {
				return apierr.BadRequest("invalid_relationship", fmt.Errorf("relationship references unknown table %q", end.Table))
			}
			if end.Field == "" {
				return apierr.BadRequest("invalid_relationship", fmt.Errorf("relationship end on %q has no field", end.Table))
			}
			if len(fields) > 0 {
				if _, ok := fields[end.Field]; !ok {
					return apierr.BadRequest("invalid_relationship", fmt.Errorf("relationship references unknown field %s.%s", end.Table, end.Field))
				}
			}
		}
	}
	return nil
}

// RenderPrisma prints Prisma models for the design. Relation fields are added
// to the source table of each relationship, right after the model header.
func RenderPrisma(tables []types.SchemaTable, rels []types.SchemaRelationship) string {
	relLines := map[string][]string{}
	for _, r := range rels {
		target := r.Target.Table
		var line string
		switch r.Type {
		case types.OneToMany, types.ManyToMany:
			line = fmt.Sprintf("  %ss %s[]", lowerFirst(target), target)
		default:
			line = fmt.Sprintf("  %s %s @relation(fields: [%s], references: [%s])", lowerFirst(target), target, r.Source.Field, r.Target.Field)
		}
		relLines[r.Source.Table] = append(relLines[r.Source.Table], line)
	}

	var b strings.Builder
	for _, t := range tables {
		fmt.Fprintf(&b, "model %s {\n", t.Name)
		for _, l := range relLines[t.Name] {
			b.WriteString(l)
			b.WriteByte('\n')
		}
		for _, f := range t.Fields {
			b.WriteString(prismaField(f))
			b.WriteByte('\n')
		}
		b.WriteString("}\n\n")
	}
	return b.String()
}

func prismaField(f types.SchemaField) string {
	typ := f.Type
	if !f.IsRequired && !f.IsID {
		typ += "?"
	}
	line := "  " + f.Name + " " + typ
	if f.IsID {
		line += " @id"
	}
	if f.IsUnique {
		line += " @unique"
	}
	if f.DefaultValue != "" {
		line += " @default(" + prismaDefault(f.DefaultValue) + ")"
	}
	return line
}

// prismaDefault leaves numbers, booleans and function calls such as now() bare
// and quotes everything else.
func prismaDefault(v string) string {
	if v == "true" || v == "false" || strings.HasSuffix(v, ")") {
		return v
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	return strconv.Quote(v)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
