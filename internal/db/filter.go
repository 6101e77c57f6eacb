package db

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FilterBuilder assembles MongoDB filters fluently.
type FilterBuilder struct {
	filter bson.M
}

func NewFilter() *FilterBuilder {
	return &FilterBuilder{filter: bson.M{}}
}

// Eq adds an equality condition.
func (f *FilterBuilder) Eq(field string, value interface{}) *FilterBuilder {
	f.filter[field] = value
	return f
}

// Ne adds a not-equal condition.
func (f *FilterBuilder) Ne(field string, value interface{}) *FilterBuilder {
	f.filter[field] = bson.M{"$ne": value}
	return f
}

// Lte adds a less-than-or-equal condition.
func (f *FilterBuilder) Lte(field string, value interface{}) *FilterBuilder {
	f.filter[field] = bson.M{"$lte": value}
	return f
}

// In adds an $in condition.
func (f *FilterBuilder) In(field string, values interface{}) *FilterBuilder {
	f.filter[field] = bson.M{"$in": values}
	return f
}

// Contains matches array fields containing value.
func (f *FilterBuilder) Contains(field string, value interface{}) *FilterBuilder {
	f.filter[field] = value
	return f
}

// ObjectID adds an ObjectID equality condition. Invalid hex pins the field
// to the zero ObjectID so the query matches nothing instead of everything.
func (f *FilterBuilder) ObjectID(field string, id string) *FilterBuilder {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		objectID = primitive.NilObjectID
	}
	f.filter[field] = objectID
	return f
}

// Build returns the assembled bson.M filter.
func (f *FilterBuilder) Build() bson.M {
	return f.filter
}
