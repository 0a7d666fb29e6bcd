/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docmodel

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/suparena/docmodel/config"
	"github.com/suparena/docmodel/datastore"
	"github.com/suparena/docmodel/datastore/ddb"
	"github.com/suparena/docmodel/datastore/mock"
	"github.com/suparena/docmodel/datastore/mongodb"
	"github.com/suparena/docmodel/errors"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/multierr"
)

// ConnectOption tunes Open and Connect.
type ConnectOption func(*connectOptions)

type connectOptions struct {
	database string
	timeout  time.Duration
	mongo    []mongodb.Option
	dynamo   []ddb.Option
}

// WithDatabase selects the database, overriding the one named in the URI.
func WithDatabase(name string) ConnectOption {
	return func(o *connectOptions) { o.database = name }
}

// WithTimeout bounds connection setup.
func WithTimeout(d time.Duration) ConnectOption {
	return func(o *connectOptions) { o.timeout = d }
}

// WithMongoOptions passes options to the MongoDB driver.
func WithMongoOptions(opts ...mongodb.Option) ConnectOption {
	return func(o *connectOptions) { o.mongo = append(o.mongo, opts...) }
}

// WithDynamoOptions passes options to the DynamoDB store.
func WithDynamoOptions(opts ...ddb.Option) ConnectOption {
	return func(o *connectOptions) { o.dynamo = append(o.dynamo, opts...) }
}

// Open creates a database for uri without registering it. Supported schemes:
//
//	mongodb://host/db, mongodb+srv://host/db
//	dynamodb://region/table[?endpoint=http://localhost:8000]
//	memory://name
func Open(ctx context.Context, uri string, opts ...ConnectOption) (datastore.Database, error) {
	o := &connectOptions{}
	for _, opt := range opts {
		opt(o)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.NewValidationError("uri", err.Error())
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	switch strings.ToLower(u.Scheme) {
	case "mongodb", "mongodb+srv":
		mopts := []mongodb.Option{mongodb.WithLogger(Logger())}
		if o.database != "" {
			mopts = append(mopts, mongodb.WithDatabase(o.database))
		}
		if o.timeout > 0 {
			mopts = append(mopts, mongodb.WithClientOptions(options.Client().
				SetConnectTimeout(o.timeout).
				SetServerSelectionTimeout(o.timeout)))
		}
		return mongodb.Connect(ctx, uri, append(mopts, o.mongo...)...)

	case "dynamodb":
		region, table := u.Host, strings.Trim(u.Path, "/")
		if region == "" || table == "" {
			return nil, errors.NewValidationError("uri", "dynamodb URI must be dynamodb://<region>/<table>")
		}
		dopts := []ddb.Option{ddb.WithLogger(Logger())}
		if endpoint := u.Query().Get("endpoint"); endpoint != "" {
			dopts = append(dopts, ddb.WithEndpoint(endpoint))
		}
		return ddb.Connect(ctx, region, table, append(dopts, o.dynamo...)...)

	case "memory":
		name := u.Host
		if o.database != "" {
			name = o.database
		}
		if name == "" {
			name = mongodb.DefaultDatabase
		}
		return mock.NewDatabase(name), nil
	}
	return nil, errors.NewValidationError("uri", fmt.Sprintf("unsupported scheme %q", u.Scheme))
}

// Connect opens uri and registers it under alias.
func (c *Connections) Connect(ctx context.Context, alias, uri string, opts ...ConnectOption) (datastore.Database, error) {
	db, err := Open(ctx, uri, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect %q: %w", alias, err)
	}
	if err := c.Register(alias, db); err != nil {
		return nil, multierr.Append(err, db.Close(ctx))
	}
	log().Infow("connected", "alias", alias, "database", db.Name())
	return db, nil
}

// ConnectConfig connects every alias in cfg. Aliases connected before a
// failure stay registered.
func (c *Connections) ConnectConfig(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, alias := range cfg.Aliases() {
		conn := cfg.Connections[alias]
		opts := []ConnectOption{WithTimeout(conn.TimeoutOrDefault())}
		if conn.Database != "" {
			opts = append(opts, WithDatabase(conn.Database))
		}
		if conn.DriverName() == config.DriverDynamo {
			var dopts []ddb.Option
			if conn.Endpoint != "" {
				dopts = append(dopts, ddb.WithEndpoint(conn.Endpoint))
			}
			if conn.AccessKey != "" {
				dopts = append(dopts, ddb.WithCredentials(conn.AccessKey, conn.SecretKey))
			}
			opts = append(opts, WithDynamoOptions(dopts...))
		}
		if _, err := c.Connect(ctx, alias, conn.ConnectionURI(), opts...); err != nil {
			return err
		}
	}
	return nil
}

// Connect opens uri and registers it under alias in the default registry.
func Connect(ctx context.Context, alias, uri string, opts ...ConnectOption) (datastore.Database, error) {
	return defaultConnections.Connect(ctx, alias, uri, opts...)
}

// ConnectConfig connects every alias of cfg in the default registry.
func ConnectConfig(ctx context.Context, cfg *config.Config) error {
	return defaultConnections.ConnectConfig(ctx, cfg)
}
