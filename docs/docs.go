// Package docs registers the OpenAPI document served by gin-swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/data": {
            "get": {
                "description": "Returns at most three orders with the highest total, each joined with its product (by product code) and user (by user id).",
                "produces": ["application/json"],
                "tags": ["Orders"],
                "summary": "Top orders by total",
                "operationId": "topSpenders",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {"$ref": "#/definitions/handlers.TopOrderResponse"}
                        }
                    },
                    "500": {
                        "description": "Unable to retrieve data",
                        "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}
                    }
                }
            }
        },
        "/done": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness text",
                "operationId": "done",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handlers.DoneResponse"}
                    }
                }
            }
        },
        "/store": {
            "post": {
                "description": "Deduplicates the batch, then inserts each record's user, product and order if absent.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Orders"],
                "summary": "Ingest a batch of records",
                "operationId": "storeBatch",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Replay-safe key; a repeated key returns the stored response",
                        "name": "Idempotency-Key",
                        "in": "header"
                    },
                    {
                        "description": "Batch of composite records",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "array",
                            "items": {"$ref": "#/definitions/domain.IngestRecord"}
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Batch stored",
                        "schema": {"$ref": "#/definitions/handlers.StoreResponse"}
                    },
                    "400": {
                        "description": "Malformed or invalid record",
                        "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}
                    },
                    "413": {
                        "description": "Batch or body too large",
                        "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}
                    },
                    "500": {
                        "description": "Server Error",
                        "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "domain.IngestRecord": {
            "type": "object",
            "properties": {
                "orders": {"$ref": "#/definitions/domain.OrderData"},
                "products": {"$ref": "#/definitions/domain.ProductData"},
                "userData": {"$ref": "#/definitions/domain.UserData"}
            }
        },
        "domain.IngestSummary": {
            "type": "object",
            "properties": {
                "orders_created": {"type": "integer"},
                "processed": {"type": "integer"},
                "products_created": {"type": "integer"},
                "received": {"type": "integer"},
                "users_created": {"type": "integer"}
            }
        },
        "domain.OrderData": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string", "example": "2024-03-01T10:05:00Z"},
                "orderNumber": {"type": "integer", "example": 1001},
                "quantity": {"type": "integer", "example": 3}
            }
        },
        "domain.ProductData": {
            "type": "object",
            "properties": {
                "productCode": {"type": "string", "example": "CB-001"},
                "productName": {"type": "string", "example": "Coffee beans"},
                "productPrice": {"type": "string", "example": "10"}
            }
        },
        "domain.UserData": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string", "example": "2024-03-01T10:00:00Z"},
                "fullName": {"type": "string", "example": "Jane Doe"},
                "phone": {"type": "string", "example": "+15550100"}
            }
        },
        "handlers.DoneResponse": {
            "type": "object",
            "properties": {
                "text": {"type": "string", "example": "done"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "request_id": {"type": "string"}
            }
        },
        "handlers.StoreResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "summary": {"$ref": "#/definitions/domain.IngestSummary"}
            }
        },
        "handlers.TopOrderResponse": {
            "type": "object",
            "properties": {
                "productName": {"type": "string"},
                "productPrice": {"type": "string"},
                "quantity": {"type": "integer"},
                "total": {"type": "number"},
                "userName": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Orders Backend API",
	Description:      "Batch ingestion of user/product/order records and a top-orders report.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
