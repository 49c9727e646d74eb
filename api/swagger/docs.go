package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Guardian Linking & Reward Ledger API",
        "description": "Consent-gated guardian links and signed point ledger",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Token issuance and rotation"},
        {"name": "Links", "description": "Guardian link lifecycle"},
        {"name": "Rewards", "description": "Signed point ledger"},
        {"name": "Dashboard", "description": "Guardian overview"},
        {"name": "Notifications", "description": "Per-user notification feed"}
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "Tokens issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "Tokens rotated"},
                    "401": {"description": "Token expired or revoked"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Session revoked"}
                }
            }
        },
        "/links": {
            "post": {
                "tags": ["Links"],
                "summary": "Request a guardian link",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Pending link created"},
                    "403": {"description": "Caller lacks guardian capability"},
                    "404": {"description": "Child handle not found"},
                    "409": {"description": "Pair already linked"}
                }
            },
            "get": {
                "tags": ["Links"],
                "summary": "List links for the caller",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Links"}
                }
            }
        },
        "/links/pending": {
            "get": {
                "tags": ["Links"],
                "summary": "List pending link requests addressed to the caller",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Pending links"}
                }
            }
        },
        "/links/{id}/respond": {
            "put": {
                "tags": ["Links"],
                "summary": "Accept or reject a pending link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Decision recorded"},
                    "403": {"description": "Not the addressed child"},
                    "412": {"description": "Link no longer pending"}
                }
            }
        },
        "/links/{counterpartId}": {
            "delete": {
                "tags": ["Links"],
                "summary": "Remove an accepted link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "counterpartId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Link severed"},
                    "404": {"description": "No accepted link"}
                }
            }
        },
        "/rewards": {
            "post": {
                "tags": ["Rewards"],
                "summary": "Post a reward or penalty",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Entry recorded"},
                    "403": {"description": "Caller may not post for this student"},
                    "412": {"description": "Student not active in class"}
                }
            },
            "get": {
                "tags": ["Rewards"],
                "summary": "List ledger entries",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Entries"}
                }
            }
        },
        "/rewards/{id}": {
            "delete": {
                "tags": ["Rewards"],
                "summary": "Cancel a ledger entry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Entry cancelled"},
                    "403": {"description": "Only the giver may cancel"},
                    "412": {"description": "Window elapsed or already cancelled"}
                }
            }
        },
        "/rewards/total": {
            "get": {
                "tags": ["Rewards"],
                "summary": "Point totals for a student in a class",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Totals"}
                }
            }
        },
        "/rewards/summary": {
            "get": {
                "tags": ["Rewards"],
                "summary": "Per-class point summary",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Summary"}
                }
            }
        },
        "/rewards/export": {
            "get": {
                "tags": ["Rewards"],
                "summary": "Export ledger statement",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "CSV or PDF payload"}
                }
            }
        },
        "/dashboard/guardian": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Guardian dashboard",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Aggregated progress"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List notifications for the caller",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Notifications"}
                }
            }
        },
        "/notifications/{id}/read": {
            "put": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Marked read"},
                    "404": {"description": "Not found"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
