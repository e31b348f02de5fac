// Package catalog reads the externally-owned registry of tracked entities,
// orgs, sources and analysis keywords. Everything here is a read-only
// snapshot; this service never writes to these collections.
package catalog

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/teacherhub/reputation-bot/internal/models"
)

// Catalog is the read-only contract the engine consumes.
type Catalog interface {
	ActiveEntities(ctx context.Context) ([]models.Entity, error)
	ActiveOrgs(ctx context.Context) ([]models.Org, error)
	ActiveSources(ctx context.Context) ([]models.Source, error)
	// ActiveKeywords returns the active lexicon rows, optionally filtered to
	// one category; an empty category returns all of them.
	ActiveKeywords(ctx context.Context, category string) ([]models.AnalysisKeyword, error)
}

// MongoCatalog reads the catalog collections from MongoDB.
type MongoCatalog struct {
	db *mongo.Database
}

var _ Catalog = (*MongoCatalog)(nil)

// NewMongoCatalog wraps a database handle as a catalog.
func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{db: db}
}

// ActiveEntities returns all active entities ordered by id.
func (c *MongoCatalog) ActiveEntities(ctx context.Context) ([]models.Entity, error) {
	cursor, err := c.db.Collection("entities").Find(ctx,
		bson.M{"active": true},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}

	var entities []models.Entity
	if err := cursor.All(ctx, &entities); err != nil {
		return nil, fmt.Errorf("failed to decode entities: %w", err)
	}
	return entities, nil
}

// ActiveOrgs returns all active orgs ordered by id.
func (c *MongoCatalog) ActiveOrgs(ctx context.Context) ([]models.Org, error) {
	cursor, err := c.db.Collection("orgs").Find(ctx,
		bson.M{"active": true},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query orgs: %w", err)
	}

	var orgs []models.Org
	if err := cursor.All(ctx, &orgs); err != nil {
		return nil, fmt.Errorf("failed to decode orgs: %w", err)
	}
	return orgs, nil
}

// ActiveSources returns all active sources ordered by id; this is the source
// enumeration order the coordinator reports results in.
func (c *MongoCatalog) ActiveSources(ctx context.Context) ([]models.Source, error) {
	cursor, err := c.db.Collection("sources").Find(ctx,
		bson.M{"active": true},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}

	var sources []models.Source
	if err := cursor.All(ctx, &sources); err != nil {
		return nil, fmt.Errorf("failed to decode sources: %w", err)
	}
	return sources, nil
}

// ActiveKeywords returns the active analysis keywords.
func (c *MongoCatalog) ActiveKeywords(ctx context.Context, category string) ([]models.AnalysisKeyword, error) {
	filter := bson.M{"active": true}
	if category != "" {
		filter["category"] = category
	}

	cursor, err := c.db.Collection("analysis_keywords").Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis keywords: %w", err)
	}

	var keywords []models.AnalysisKeyword
	if err := cursor.All(ctx, &keywords); err != nil {
		return nil, fmt.Errorf("failed to decode analysis keywords: %w", err)
	}
	return keywords, nil
}
