package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/fireroute/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	fireZoneType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FireZone",
		Fields: graphql.Fields{
			"is_in_fire_zone":     &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"fire_zone_name":      &graphql.Field{Type: graphql.String},
			"incident_name":       &graphql.Field{Type: graphql.String},
			"containment_percent": &graphql.Field{Type: graphql.Float},
			"acres_burned":        &graphql.Field{Type: graphql.Float},
			"last_update":         &graphql.Field{Type: graphql.DateTime},
		},
	})

	incidentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FireIncident",
		Fields: graphql.Fields{
			"incident_name":       &graphql.Field{Type: graphql.String},
			"fire_zone_name":      &graphql.Field{Type: graphql.String},
			"containment_percent": &graphql.Field{Type: graphql.Float},
			"acres_burned":        &graphql.Field{Type: graphql.Float},
			"last_update":         &graphql.Field{Type: graphql.DateTime},
			"bounds":              &graphql.Field{Type: boundsType},
		},
	})

	routeLinkType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteLink",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"expires_at": &graphql.Field{Type: graphql.DateTime},
			"payload":    &graphql.Field{Type: graphql.String, Description: "Stored route spec as a JSON document"},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"fireZone": &graphql.Field{
				Type:        fireZoneType,
				Description: "Check whether a point lies inside an active fire perimeter",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					return deps.Perimeters.FireZoneAt(p.Context, domain.Coordinate{Lat: lat, Lon: lon})
				},
			},
			"fires": &graphql.Field{
				Type:        graphql.NewList(incidentType),
				Description: "List fire incidents intersecting a bounding box",
				Args: graphql.FieldConfigArgument{
					"minLat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"minLon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"maxLat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"maxLon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					box := domain.BoundingBox{
						MinLat: p.Args["minLat"].(float64),
						MinLon: p.Args["minLon"].(float64),
						MaxLat: p.Args["maxLat"].(float64),
						MaxLon: p.Args["maxLon"].(float64),
					}
					incidents, err := deps.Perimeters.ListIncidents(p.Context, box)
					if err != nil {
						return nil, err
					}
					if limit := p.Args["limit"].(int); limit > 0 && len(incidents) > limit {
						incidents = incidents[:limit]
					}
					return incidents, nil
				},
			},
			"routeLink": &graphql.Field{
				Type:        routeLinkType,
				Description: "Resolve a shared route link",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					rec, err := deps.Links.Resolve(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"id":         rec.ID,
						"expires_at": rec.ExpiresAt,
						"payload":    string(rec.Payload),
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
