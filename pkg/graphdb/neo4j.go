package graphdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OFFIS-RIT/graphvis/pkg/logger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const systemDatabase = "system"

const (
	codeDatabaseNotFound = "Neo.ClientError.Database.DatabaseNotFound"
	codeParameterMissing = "Neo.ClientError.Statement.ParameterMissing"
	codeSemanticError    = "Neo.ClientError.Statement.SemanticError"
	codeSyntaxError      = "Neo.ClientError.Statement.SyntaxError"
)

// Neo4jConfig configures the Neo4j driver.
type Neo4jConfig struct {
	URI                   string
	Username              string
	Password              string
	MaxConnectionPoolSize int
	ConnectionTimeout     time.Duration
	ConnectRetries        int
}

// Neo4jDriver implements Driver with one Neo4j database per namespace.
type Neo4jDriver struct {
	driver neo4j.DriverWithContext

	// namespaces already known to exist
	created sync.Map
}

// NewNeo4jDriver connects to Neo4j, retrying with exponential backoff until
// the server answers or the retries are exhausted.
func NewNeo4jDriver(ctx context.Context, cfg Neo4jConfig) (*Neo4jDriver, error) {
	auth := neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	configure := func(c *neo4j.Config) {
		if cfg.MaxConnectionPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
		}
		if cfg.ConnectionTimeout > 0 {
			c.ConnectionAcquisitionTimeout = cfg.ConnectionTimeout
		}
	}

	retries := max(cfg.ConnectRetries, 1)
	delay := 200 * time.Millisecond
	var lastErr error
	for attempt := range retries {
		driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, configure)
		if err == nil {
			if err = driver.VerifyConnectivity(ctx); err == nil {
				return &Neo4jDriver{driver: driver}, nil
			}
			_ = driver.Close(ctx)
		}
		lastErr = err
		logger.Warn("Neo4j not reachable", "attempt", attempt+1, "err", err)

		select {
		case <-time.After(delay):
			delay = min(delay*2, 10*time.Second)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("connect to neo4j after %d attempts: %w", retries, lastErr)
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

func (d *Neo4jDriver) OpenSession(ctx context.Context, namespace string, mode AccessMode) (Session, error) {
	name, err := NamespaceName(namespace)
	if err != nil {
		return nil, err
	}

	access := neo4j.AccessModeRead
	if mode == Write {
		access = neo4j.AccessModeWrite
		if err := d.ensureNamespace(ctx, name); err != nil {
			return nil, err
		}
	}

	s := d.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: name,
		AccessMode:   access,
	})
	return &neo4jSession{session: s}, nil
}

func (d *Neo4jDriver) DestroyNamespace(ctx context.Context, namespace string) error {
	name, err := NamespaceName(namespace)
	if err != nil {
		return err
	}

	err = d.system(ctx, "DROP DATABASE $name IF EXISTS DESTROY DATA WAIT", name)
	if err != nil && !errors.Is(err, ErrNamespaceNotFound) {
		return fmt.Errorf("drop namespace %s: %w", name, err)
	}
	d.created.Delete(name)
	return nil
}

func (d *Neo4jDriver) ensureNamespace(ctx context.Context, name string) error {
	if _, ok := d.created.Load(name); ok {
		return nil
	}
	if err := d.system(ctx, "CREATE DATABASE $name IF NOT EXISTS WAIT", name); err != nil {
		return fmt.Errorf("create namespace %s: %w", name, err)
	}
	d.created.Store(name, struct{}{})
	return nil
}

// system runs an administration command against the system database.
// These commands cannot run inside explicit transactions.
func (d *Neo4jDriver) system(ctx context.Context, text, name string) error {
	s := d.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: systemDatabase,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer s.Close(ctx)

	res, err := s.Run(ctx, text, map[string]any{"name": name})
	if err != nil {
		return classify(err)
	}
	if _, err := res.Consume(ctx); err != nil {
		return classify(err)
	}
	return nil
}

type neo4jSession struct {
	session neo4j.SessionWithContext
}

func (s *neo4jSession) BeginTransaction(ctx context.Context) (Transaction, error) {
	tx, err := s.session.BeginTransaction(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return &neo4jTransaction{tx: tx}, nil
}

func (s *neo4jSession) Close(ctx context.Context) error {
	return s.session.Close(ctx)
}

type neo4jTransaction struct {
	tx neo4j.ExplicitTransaction
}

func (t *neo4jTransaction) Run(ctx context.Context, text string, params map[string]any) ([]Record, error) {
	res, err := t.tx.Run(ctx, text, params)
	if err != nil {
		return nil, classify(err)
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, classify(err)
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		values := make([]any, len(r.Values))
		for i, v := range r.Values {
			values[i] = convertValue(v)
		}
		out = append(out, Record{Keys: r.Keys, Values: values})
	}
	return out, nil
}

func (t *neo4jTransaction) Commit(ctx context.Context) error {
	return classify(t.tx.Commit(ctx))
}

func (t *neo4jTransaction) Rollback(ctx context.Context) error {
	return classify(t.tx.Rollback(ctx))
}

// classify maps server error codes onto the package sentinels. The original
// error stays in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var neoErr *neo4j.Neo4jError
	if !errors.As(err, &neoErr) {
		return err
	}
	switch neoErr.Code {
	case codeDatabaseNotFound:
		return fmt.Errorf("%w: %w", ErrNamespaceNotFound, err)
	case codeParameterMissing, codeSemanticError, codeSyntaxError:
		return fmt.Errorf("%w: %w", ErrInvalidStatement, err)
	}
	return err
}

// convertValue turns driver graph types into the package's own types so
// callers never depend on the driver.
func convertValue(v any) any {
	switch val := v.(type) {
	case neo4j.Node:
		return Node{
			ElementID:  val.ElementId,
			Labels:     val.Labels,
			Properties: val.Props,
		}
	case neo4j.Relationship:
		return Relationship{
			ElementID:          val.ElementId,
			Type:               val.Type,
			StartNodeElementID: val.StartElementId,
			EndNodeElementID:   val.EndElementId,
			Properties:         val.Props,
		}
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = convertValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = convertValue(item)
		}
		return out
	default:
		return v
	}
}
