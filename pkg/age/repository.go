/*
Package age persists labeled property graphs in Apache AGE on Postgres. The
Repository speaks SQL-wrapped openCypher over database/sql and decodes the
agtype text that comes back. Every mutating call runs in a single
transaction, so a failed statement leaves the stored graph untouched.
*/
package age

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/machinae-labs/mcp-server-age-bridge/pkg/agtype"
	"github.com/machinae-labs/mcp-server-age-bridge/pkg/graph"
	"github.com/machinae-labs/mcp-server-age-bridge/pkg/ident"
)

var (
	// ErrGraphNotFound is returned when an operation targets a graph that
	// was never ensured.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrQueryFailed wraps any error coming back from the store. No
	// retries happen here; the caller decides.
	ErrQueryFailed = errors.New("query failed")
)

const (
	loadExtension = "LOAD 'age';"
	setSearchPath = `SET search_path = ag_catalog, "$user", public;`

	graphExistsSQL = "SELECT count(*) FROM ag_catalog.ag_graph WHERE name = $1;"
	createGraphSQL = "SELECT ag_catalog.create_graph($1);"
	dropGraphSQL   = "SELECT ag_catalog.drop_graph($1, true);"

	matchAllVertices = "MATCH (n) RETURN n"
	matchAllEdges    = "MATCH ()-[e]->() RETURN e"
)

/*
Options tunes the graphs a Repository hands out. Zero values fall back to
the package defaults.
*/
type Options struct {
	IdentWords     int
	IdentDelimiter string
	CacheCapacity  int
}

func (o Options) withDefaults() Options {
	if o.IdentWords <= 0 {
		o.IdentWords = graph.DefaultIdentWords
	}
	if o.IdentDelimiter == "" {
		o.IdentDelimiter = graph.DefaultIdentDelimiter
	}

	return o
}

/*
Repository is the bridge between in-memory graphs and their stored
counterparts. Full-graph upserts are serialized per graph name, so two
concurrent writers to the same graph never interleave their diffs.
*/
type Repository struct {
	db   *sql.DB
	opts Options
	gen  *ident.Generator

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

/*
NewRepository wraps an open database handle. The handle stays owned by the
caller, the repository never closes it.
*/
func NewRepository(db *sql.DB, opts Options) *Repository {
	return &Repository{
		db:    db,
		opts:  opts.withDefaults(),
		gen:   ident.New(),
		locks: make(map[string]*sync.Mutex),
	}
}

func (r *Repository) lockGraph(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[name] = lock
	}

	return lock
}

/*
begin opens a transaction and runs the AGE session prelude on it. Both the
extension load and the search path are connection state, so they have to
happen on the transaction's own connection.
*/
func (r *Repository) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	for _, stmt := range []string{loadExtension, setSearchPath} {
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
	}

	return tx, nil
}

func (r *Repository) graphExists(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var count int
	if err := tx.QueryRowContext(ctx, graphExistsSQL, name).Scan(&count); err != nil {
		return false, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	return count > 0, nil
}

/*
GraphExists reports whether a graph of that name has been ensured.
*/
func (r *Repository) GraphExists(ctx context.Context, name string) (bool, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	exists, err := r.graphExists(ctx, tx, name)
	if err != nil {
		return false, err
	}

	return exists, tx.Commit()
}

/*
EnsureGraph creates the named graph when it does not exist yet. Ensuring an
existing graph is a no-op, never an error.
*/
func (r *Repository) EnsureGraph(ctx context.Context, name string) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	exists, err := r.graphExists(ctx, tx, name)
	if err != nil {
		return err
	}

	if !exists {
		if _, err := tx.ExecContext(ctx, createGraphSQL, name); err != nil {
			return fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
		log.Info("created graph", "name", name)
	}

	return tx.Commit()
}

/*
fetchRecords runs a wrapped cypher statement inside the transaction and
decodes every row. A single malformed row aborts the whole fetch.
*/
func fetchRecords(ctx context.Context, tx *sql.Tx, graphName, stmt string) ([]agtype.Record, error) {
	rows, err := tx.QueryContext(ctx, wrapCypher(graphName, stmt))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer rows.Close()

	var records []agtype.Record

	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}

		decoded, err := agtype.Decode(text)
		if err != nil {
			return nil, err
		}
		records = append(records, decoded...)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	return records, nil
}

func (r *Repository) getGraph(ctx context.Context, tx *sql.Tx, name string) (*graph.Graph, error) {
	exists, err := r.graphExists(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrGraphNotFound, name)
	}

	vertices, err := fetchRecords(ctx, tx, name, matchAllVertices)
	if err != nil {
		return nil, err
	}

	edges, err := fetchRecords(ctx, tx, name, matchAllEdges)
	if err != nil {
		return nil, err
	}

	g, err := agtype.ToGraphWithCapacity(name, append(vertices, edges...), r.opts.CacheCapacity)
	if err != nil {
		return nil, err
	}
	g.SetIdentShape(r.opts.IdentWords, r.opts.IdentDelimiter)

	return g, nil
}

/*
GetGraph loads the full stored graph into memory. Fails with
ErrGraphNotFound when the graph was never ensured, and aborts without a
partial result when any stored record is malformed.
*/
func (r *Repository) GetGraph(ctx context.Context, name string) (*graph.Graph, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	g, err := r.getGraph(ctx, tx, name)
	if err != nil {
		return nil, err
	}

	return g, tx.Commit()
}

/*
GetOrCreateGraph ensures the graph exists, then loads it.
*/
func (r *Repository) GetOrCreateGraph(ctx context.Context, name string) (*graph.Graph, error) {
	if err := r.EnsureGraph(ctx, name); err != nil {
		return nil, err
	}

	return r.GetGraph(ctx, name)
}

/*
UpsertGraph diffs the target graph against the stored one and applies the
resulting patch in one transaction. The stored graph is the diff source, so
anything absent from the target is removed. Returns the freshly loaded
stored graph, which reflects the ids the store assigned.
*/
func (r *Repository) UpsertGraph(ctx context.Context, target *graph.Graph) (*graph.Graph, error) {
	if err := target.ValidateEndpoints(); err != nil {
		return nil, err
	}

	lock := r.lockGraph(target.Name())
	lock.Lock()
	defer lock.Unlock()

	if err := r.EnsureGraph(ctx, target.Name()); err != nil {
		return nil, err
	}

	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	current, err := r.getGraph(ctx, tx, target.Name())
	if err != nil {
		return nil, err
	}

	patch := graph.Diff(current, target)
	if patch.Empty() {
		tx.Rollback()
		return current, nil
	}

	stmts, err := Statements(patch)
	if err != nil {
		return nil, err
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, wrapCypher(target.Name(), stmt)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
	}

	stored, err := r.getGraph(ctx, tx, target.Name())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	log.Info("upserted graph", "name", target.Name(), "mutations", patch.Len())
	return stored, nil
}

func fetchVertex(ctx context.Context, tx *sql.Tx, graphName, identValue string) (*graph.Vertex, error) {
	stmt := fmt.Sprintf("MATCH (n {ident: %s}) RETURN n", quoteString(identValue))

	records, err := fetchRecords(ctx, tx, graphName, stmt)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	return records[0].ToVertex()
}

func fetchEdge(ctx context.Context, tx *sql.Tx, graphName, stmt string) (*graph.Edge, error) {
	records, err := fetchRecords(ctx, tx, graphName, stmt)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	return records[0].ToEdge()
}

// freshIdent draws identifiers until one is not taken in the store.
func (r *Repository) freshIdent(taken func(string) bool) (string, error) {
	return r.gen.Generate(r.opts.IdentWords, r.opts.IdentDelimiter, taken)
}

/*
UpsertVertex merges props into the stored vertex with that ident, creating
the vertex when it does not exist. An empty ident asks the repository to
generate one. Existing property keys absent from props survive untouched.
*/
func (r *Repository) UpsertVertex(ctx context.Context, graphName, label, identValue string, props graph.Properties) (*graph.Vertex, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	exists, err := r.graphExists(ctx, tx, graphName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrGraphNotFound, graphName)
	}

	var existing *graph.Vertex
	if identValue != "" {
		if existing, err = fetchVertex(ctx, tx, graphName, identValue); err != nil {
			return nil, err
		}
	} else {
		var lookupErr error
		identValue, err = r.freshIdent(func(candidate string) bool {
			v, ferr := fetchVertex(ctx, tx, graphName, candidate)
			if ferr != nil {
				lookupErr = ferr
			}
			return v != nil
		})
		if lookupErr != nil {
			return nil, lookupErr
		}
		if err != nil {
			return nil, err
		}
	}

	if existing != nil {
		merged := existing.Properties().Clone()
		merged.Merge(props)

		stmt := fmt.Sprintf("MATCH (n {ident: %s}) SET %s",
			quoteString(identValue), setClauses("n", merged, nil))
		if _, err := tx.ExecContext(ctx, wrapCypher(graphName, stmt)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
	} else {
		full := props.Clone()
		if full == nil {
			full = graph.Properties{}
		}
		full.Set(graph.IdentKey, graph.String(identValue))

		stmt := fmt.Sprintf("CREATE (%s %s)", labelFragment(label), encodeProperties(full))
		if _, err := tx.ExecContext(ctx, wrapCypher(graphName, stmt)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
	}

	stored, err := fetchVertex(ctx, tx, graphName, identValue)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: vertex %q vanished after upsert", ErrQueryFailed, identValue)
	}

	return stored, tx.Commit()
}

/*
UpsertEdge merges props into the stored edge, creating it when unseen. The
edge is matched by ident first; with no ident, an existing edge with the
same endpoints and label is merged into instead. Both endpoint vertices
must already exist.
*/
func (r *Repository) UpsertEdge(ctx context.Context, graphName, label, startIdent, endIdent, identValue string, props graph.Properties) (*graph.Edge, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	exists, err := r.graphExists(ctx, tx, graphName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrGraphNotFound, graphName)
	}

	var existing *graph.Edge
	if identValue != "" {
		stmt := fmt.Sprintf("MATCH ()-[e {ident: %s}]->() RETURN e", quoteString(identValue))
		if existing, err = fetchEdge(ctx, tx, graphName, stmt); err != nil {
			return nil, err
		}
	} else {
		stmt := fmt.Sprintf("MATCH ({ident: %s})-[e%s]->({ident: %s}) RETURN e",
			quoteString(startIdent), labelFragment(label), quoteString(endIdent))
		if existing, err = fetchEdge(ctx, tx, graphName, stmt); err != nil {
			return nil, err
		}
		if existing != nil {
			identValue = existing.Ident()
		}
	}

	if existing != nil {
		merged := existing.Properties().Clone()
		merged.Merge(props)

		stmt := fmt.Sprintf("MATCH ()-[e {ident: %s}]->() SET %s",
			quoteString(identValue), setClauses("e", merged, nil))
		if _, err := tx.ExecContext(ctx, wrapCypher(graphName, stmt)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
	} else {
		if identValue == "" {
			var lookupErr error
			identValue, err = r.freshIdent(func(candidate string) bool {
				stmt := fmt.Sprintf("MATCH ()-[e {ident: %s}]->() RETURN e", quoteString(candidate))
				e, ferr := fetchEdge(ctx, tx, graphName, stmt)
				if ferr != nil {
					lookupErr = ferr
				}
				return e != nil
			})
			if lookupErr != nil {
				return nil, lookupErr
			}
			if err != nil {
				return nil, err
			}
		}

		full := props.Clone()
		if full == nil {
			full = graph.Properties{}
		}
		full.Set(graph.IdentKey, graph.String(identValue))
		full.Set(graph.StartIdentKey, graph.String(startIdent))
		full.Set(graph.EndIdentKey, graph.String(endIdent))

		stmt := fmt.Sprintf(
			"MATCH (a {ident: %s}), (b {ident: %s}) CREATE (a)-[%s %s]->(b)",
			quoteString(startIdent), quoteString(endIdent),
			labelFragment(label), encodeProperties(full))
		if _, err := tx.ExecContext(ctx, wrapCypher(graphName, stmt)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
	}

	stmt := fmt.Sprintf("MATCH ()-[e {ident: %s}]->() RETURN e", quoteString(identValue))
	stored, err := fetchEdge(ctx, tx, graphName, stmt)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf(
			"edge %q was not created, do both endpoints %q and %q exist?",
			identValue, startIdent, endIdent)
	}

	return stored, tx.Commit()
}

/*
DropVertex detaches and deletes the vertex with that ident, taking any
connected edges with it.
*/
func (r *Repository) DropVertex(ctx context.Context, graphName, identValue string) error {
	stmt := fmt.Sprintf("MATCH (n {ident: %s}) DETACH DELETE n", quoteString(identValue))
	return r.execute(ctx, graphName, stmt)
}

/*
DropEdge deletes the edge with that ident. The endpoint vertices stay.
*/
func (r *Repository) DropEdge(ctx context.Context, graphName, identValue string) error {
	stmt := fmt.Sprintf("MATCH ()-[e {ident: %s}]->() DELETE e", quoteString(identValue))
	return r.execute(ctx, graphName, stmt)
}

/*
TruncateGraph removes every vertex and edge but keeps the graph itself.
*/
func (r *Repository) TruncateGraph(ctx context.Context, graphName string) error {
	return r.execute(ctx, graphName, "MATCH (n) DETACH DELETE n")
}

/*
DropGraphs removes whole graphs, cascading into their contents. Any name
that was never ensured fails the call with ErrGraphNotFound.
*/
func (r *Repository) DropGraphs(ctx context.Context, names ...string) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, name := range names {
		exists, err := r.graphExists(ctx, tx, name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %q", ErrGraphNotFound, name)
		}

		if _, err := tx.ExecContext(ctx, dropGraphSQL, name); err != nil {
			return fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
		log.Info("dropped graph", "name", name)
	}

	return tx.Commit()
}

/*
CypherFetch runs a read-only cypher statement against the graph and returns
the decoded records. A malformed row aborts the whole fetch.
*/
func (r *Repository) CypherFetch(ctx context.Context, graphName, stmt string) ([]agtype.Record, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	exists, err := r.graphExists(ctx, tx, graphName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrGraphNotFound, graphName)
	}

	records, err := fetchRecords(ctx, tx, graphName, stmt)
	if err != nil {
		return nil, err
	}

	return records, tx.Commit()
}

/*
CypherExecute runs a mutating cypher statement against the graph.
*/
func (r *Repository) CypherExecute(ctx context.Context, graphName, stmt string) error {
	return r.execute(ctx, graphName, stmt)
}

func (r *Repository) execute(ctx context.Context, graphName, stmt string) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	exists, err := r.graphExists(ctx, tx, graphName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %q", ErrGraphNotFound, graphName)
	}

	if _, err := tx.ExecContext(ctx, wrapCypher(graphName, stmt)); err != nil {
		return fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	return tx.Commit()
}
