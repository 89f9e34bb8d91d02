package bridge

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/mnohosten/flowset/pkg/refcount"
)

// Record is the concrete item shape the GraphQL surface exposes:
// an arbitrary JSON document, mirroring the teacher's
// graphql.documentType/JSONScalar pairing (pkg/graphql/schema.go,
// pkg/graphql/scalars.go) but backed by a source list's live contents
// instead of a stored collection.
type Record = map[string]any

var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "Arbitrary JSON value",
	Serialize:   func(value any) any { return value },
	ParseValue:  func(value any) any { return value },
	ParseLiteral: func(valueAST ast.Value) any {
		return parseLiteral(valueAST)
	},
})

func parseLiteral(valueAST ast.Value) any {
	switch v := valueAST.(type) {
	case *ast.ObjectValue:
		obj := make(map[string]any, len(v.Fields))
		for _, f := range v.Fields {
			obj[f.Name.Value] = parseLiteral(f.Value)
		}
		return obj
	case *ast.ListValue:
		list := make([]any, len(v.Values))
		for i, item := range v.Values {
			list[i] = parseLiteral(item)
		}
		return list
	case *ast.StringValue:
		return v.Value
	case *ast.BooleanValue:
		return v.Value
	default:
		return nil
	}
}

// Schema builds a GraphQL schema exposing the read-only view's
// current contents as two query fields, "items" and "count".
func Schema(view *refcount.ReadOnlyCollection[Record]) (graphql.Schema, error) {
	recordType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Record",
		Description: "One item currently held by the source list",
		Fields: graphql.Fields{
			"fields": &graphql.Field{
				Type:        graphql.NewNonNull(jsonScalar),
				Description: "The record's fields as JSON",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source, nil
				},
			},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"items": &graphql.Field{
				Type:        graphql.NewList(recordType),
				Description: "Every item currently held by the source list",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return view.Items(), nil
				},
			},
			"count": &graphql.Field{
				Type:        graphql.Int,
				Description: "The current item count",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return view.Count(), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

// GraphQLRequest is the HTTP request body accepted by Handler,
// mirroring the teacher's pkg/graphql.GraphQLRequest.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// Handler adapts a GraphQL schema to net/http, grounded on the
// teacher's pkg/graphql.Handler.ServeHTTP.
func Handler(schema graphql.Schema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "GraphQL only accepts POST requests", http.StatusMethodNotAllowed)
			return
		}

		var req GraphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        r.Context(),
		})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}
