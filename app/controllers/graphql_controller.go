package controllers

import (
	"context"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/modera-shop/modera/app/models"
	"github.com/modera-shop/modera/app/services"
	"github.com/modera-shop/modera/pkg/ctx"
	gql "github.com/modera-shop/modera/pkg/graphql"
)

type originKey struct{}

// GraphQLController answers catalog queries:
//
//	{ products(category: "women") { id name image new_price } }
//	{ newCollection { id name } popularInWomen { id name } }
type GraphQLController struct {
	schema graphql.Schema
}

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"name":      &graphql.Field{Type: graphql.String},
		"image":     &graphql.Field{Type: graphql.String},
		"category":  &graphql.Field{Type: graphql.String},
		"new_price": &graphql.Field{Type: graphql.Float},
		"old_price": &graphql.Field{Type: graphql.Float},
		"available": &graphql.Field{Type: graphql.Boolean},
		"date":      &graphql.Field{Type: graphql.DateTime},
	},
})

func NewGraphQLController(catalog *services.CatalogService) (*GraphQLController, error) {
	origin := func(p graphql.ResolveParams) string {
		s, _ := p.Context.Value(originKey{}).(string)
		return s
	}
	list := func(load func(context.Context, string) ([]models.Product, error)) graphql.FieldResolveFn {
		return func(p graphql.ResolveParams) (interface{}, error) {
			return load(p.Context, origin(p))
		}
	}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					all, err := catalog.All(p.Context, origin(p))
					if err != nil {
						return nil, err
					}
					category, ok := p.Args["category"].(string)
					if !ok {
						return all, nil
					}
					out := []models.Product{}
					for _, prod := range all {
						if prod.Category == category {
							out = append(out, prod)
						}
					}
					return out, nil
				},
			},
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					all, err := catalog.All(p.Context, origin(p))
					if err != nil {
						return nil, err
					}
					id, _ := p.Args["id"].(int)
					for _, prod := range all {
						if prod.ID == id {
							return prod, nil
						}
					}
					return nil, nil
				},
			},
			"newCollection":  &graphql.Field{Type: graphql.NewList(productType), Resolve: list(catalog.NewCollection)},
			"popularInWomen": &graphql.Field{Type: graphql.NewList(productType), Resolve: list(catalog.PopularInWomen)},
		},
	})

	schema, err := gql.NewSchema(query)
	if err != nil {
		return nil, err
	}
	return &GraphQLController{schema: schema}, nil
}

func (gc *GraphQLController) Query(c *ctx.Context) {
	var req gql.Request
	if !c.BindJSON(&req) {
		return
	}
	reqCtx := context.WithValue(c.Context(), originKey{}, c.Origin())
	c.JSON(http.StatusOK, gql.Execute(reqCtx, gc.schema, req))
}
