// Package docs holds the Swagger 2.0 document served at /swagger. Paths
// follow the @Router annotations on internal/handlers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "http://swagger.io/terms/",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/accounts": {
            "post": {
                "description": "Create a current or savings account. The first account is always the default; a positive balance is recorded as an \"Initial balance\" income.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "accounts"
                ],
                "summary": "Create account",
                "parameters": [
                    {
                        "description": "Account details",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Account created"
                    },
                    "400": {
                        "description": "Invalid input"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            },
            "get": {
                "description": "Get a paginated list of the authenticated user's accounts with transaction counts",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "accounts"
                ],
                "summary": "Get user accounts",
                "parameters": [
                    {
                        "description": "Page number (default 1)",
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "description": "Items per page (default 20, max 100)",
                        "name": "page_size",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Paginated accounts"
                    },
                    "400": {
                        "description": "Invalid input"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            }
        },
        "/accounts/{id}": {
            "get": {
                "description": "Get a specific account by ID",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "accounts"
                ],
                "summary": "Get account by ID",
                "parameters": [
                    {
                        "description": "Account ID",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Account details"
                    },
                    "400": {
                        "description": "Invalid account ID"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "404": {
                        "description": "Account not found"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            }
        },
        "/accounts/{id}/default": {
            "put": {
                "description": "Make an account the default. The current default cannot be unset directly; choose another account instead.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "accounts"
                ],
                "summary": "Set default account",
                "parameters": [
                    {
                        "description": "Account ID",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Default flag",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Updated account"
                    },
                    "400": {
                        "description": "Invalid input or default required"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "404": {
                        "description": "Account not found"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            }
        },
        "/accounts/{id}/transactions": {
            "get": {
                "description": "Get a paginated, filtered and sorted list of transactions for one account",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "accounts",
                    "transactions"
                ],
                "summary": "Get account transactions",
                "parameters": [
                    {
                        "description": "Account ID",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Page number (default 1)",
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "description": "Items per page (default 15, max 100)",
                        "name": "page_size",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "description": "Case-insensitive match on description",
                        "name": "search",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "description": "INCOME or EXPENSE",
                        "name": "type",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "description": "recurring or non-recurring",
                        "name": "recurring",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "description": "Filter by start date (RFC3339 or YYYY-MM-DD)",
                        "name": "from_date",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "description": "Filter by end date (RFC3339 or YYYY-MM-DD)",
                        "name": "to_date",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "description": "Category ID",
                        "name": "category",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "description": "date, amount or category (default date)",
                        "name": "sort",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "description": "asc or desc (default desc)",
                        "name": "direction",
                        "in": "query",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Paginated transactions"
                    },
                    "400": {
                        "description": "Invalid input"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "404": {
                        "description": "Account not found"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            }
        },
        "/auth/2fa/disable": {
            "post": {
                "description": "Verify a current code and stop requiring it on login",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Disable two-factor auth",
                "parameters": [
                    {
                        "description": "Authenticator code",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Two-factor disabled"
                    },
                    "400": {
                        "description": "Invalid input or not enabled"
                    },
                    "401": {
                        "description": "Invalid code"
                    }
                }
            }
        },
        "/auth/2fa/enable": {
            "post": {
                "description": "Verify a code from the authenticator app and require it on future logins",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Enable two-factor auth",
                "parameters": [
                    {
                        "description": "Authenticator code",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Two-factor enabled"
                    },
                    "400": {
                        "description": "Invalid input or setup not started"
                    },
                    "401": {
                        "description": "Invalid code"
                    }
                }
            }
        },
        "/auth/2fa/setup": {
            "post": {
                "description": "Generate a TOTP secret and otpauth URL for the user's authenticator app",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Start two-factor setup",
                "responses": {
                    "200": {
                        "description": "TOTP secret and URL"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            }
        },
        "/auth/login": {
            "post": {
                "description": "Authenticate a user and get tokens. A TOTP code is required once two-factor auth is enabled.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Login user",
                "parameters": [
                    {
                        "description": "User login credentials",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "User authenticated and tokens generated"
                    },
                    "400": {
                        "description": "Invalid input"
                    },
                    "401": {
                        "description": "Invalid credentials or two-factor code"
                    },
                    "423": {
                        "description": "Account locked"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "description": "Exchange a valid refresh token for a new access/refresh token pair. The old refresh token stops working.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Refresh tokens",
                "parameters": [
                    {
                        "description": "Refresh token",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "New tokens"
                    },
                    "400": {
                        "description": "Invalid input"
                    },
                    "401": {
                        "description": "Invalid refresh token"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            }
        },
        "/auth/register": {
            "post": {
                "description": "Register a new user with email and password",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Register a new user",
                "parameters": [
                    {
                        "description": "User registration data",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "User registered and tokens generated"
                    },
                    "400": {
                        "description": "Invalid input"
                    },
                    "409": {
                        "description": "Email already registered"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            }
        },
        "/budget": {
            "get": {
                "description": "Compare the monthly budget with this month's expenses on the default account",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "budget"
                ],
                "summary": "Get budget progress",
                "responses": {
                    "200": {
                        "description": "Budget progress"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            },
            "put": {
                "description": "Create or replace the user's monthly budget",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "budget"
                ],
                "summary": "Set budget",
                "parameters": [
                    {
                        "description": "Budget amount",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Budget saved"
                    },
                    "400": {
                        "description": "Invalid input"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            }
        },
        "/categories": {
            "get": {
                "description": "List the built-in transaction categories, optionally filtered by type",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "categories"
                ],
                "summary": "List categories",
                "parameters": [
                    {
                        "description": "INCOME or EXPENSE",
                        "name": "type",
                        "in": "query",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Categories"
                    },
                    "400": {
                        "description": "Invalid type"
                    }
                }
            }
        },
        "/dashboard": {
            "get": {
                "description": "Accounts with transaction counts, this month's budget progress and the 10 most recent transactions",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "dashboard"
                ],
                "summary": "Get dashboard",
                "responses": {
                    "200": {
                        "description": "Dashboard"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            }
        },
        "/pipeline/budgets/alerts": {
            "post": {
                "description": "Queue a budget alert email for every user over the threshold who has not been alerted this month (pipeline endpoint)",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "tags": [
                    "pipeline"
                ],
                "summary": "Send budget alerts",
                "responses": {
                    "200": {
                        "description": "Run summary"
                    },
                    "401": {
                        "description": "Invalid API key"
                    },
                    "500": {
                        "description": "Server error"
                    },
                    "503": {
                        "description": "Pipeline not configured"
                    }
                }
            }
        },
        "/pipeline/recurring/process": {
            "post": {
                "description": "Create one occurrence for every due recurring transaction and advance its next date (pipeline endpoint)",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "ApiKeyAuth": []
                    }
                ],
                "tags": [
                    "pipeline"
                ],
                "summary": "Process recurring transactions",
                "responses": {
                    "200": {
                        "description": "Run summary"
                    },
                    "401": {
                        "description": "Invalid API key"
                    },
                    "500": {
                        "description": "Server error"
                    },
                    "503": {
                        "description": "Pipeline not configured"
                    }
                }
            }
        },
        "/profile": {
            "get": {
                "description": "Get the authenticated user's profile information",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "user"
                ],
                "summary": "Get user profile",
                "responses": {
                    "200": {
                        "description": "User profile"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "404": {
                        "description": "User not found"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            }
        },
        "/transactions": {
            "post": {
                "description": "Record an income or expense and update the account balance atomically",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "transactions"
                ],
                "summary": "Create a transaction",
                "parameters": [
                    {
                        "description": "Transaction details",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Transaction created"
                    },
                    "400": {
                        "description": "Invalid input"
                    },
                    "401": {
                        "description": "Unauthorized or foreign account"
                    },
                    "404": {
                        "description": "User or account not found"
                    },
                    "500": {
                        "description": "Commit failed"
                    }
                }
            }
        },
        "/transactions/bulk-delete": {
            "post": {
                "description": "Delete the caller's transactions among ids and reverse their balance effects. Unknown IDs are ignored.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "transactions"
                ],
                "summary": "Bulk delete transactions",
                "parameters": [
                    {
                        "description": "Transaction IDs",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Number deleted"
                    },
                    "400": {
                        "description": "Invalid input"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            }
        },
        "/transactions/scan": {
            "post": {
                "description": "Upload a receipt image (max 5MB) and get back the amount, date, description, merchant and category it shows",
                "consumes": [
                    "application/multipart/form-data"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "transactions"
                ],
                "summary": "Scan receipt",
                "parameters": [
                    {
                        "description": "Receipt image",
                        "name": "receipt",
                        "in": "formData",
                        "required": true,
                        "type": "file"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Extracted fields"
                    },
                    "400": {
                        "description": "Missing or non-image file"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "413": {
                        "description": "File too large"
                    },
                    "422": {
                        "description": "Not a receipt"
                    },
                    "502": {
                        "description": "Scanner failed"
                    },
                    "503": {
                        "description": "Scanner not configured"
                    }
                }
            }
        },
        "/transactions/{id}": {
            "get": {
                "description": "Get a specific transaction by ID",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "transactions"
                ],
                "summary": "Get transaction by ID",
                "parameters": [
                    {
                        "description": "Transaction ID",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Transaction details"
                    },
                    "400": {
                        "description": "Invalid transaction ID"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "404": {
                        "description": "Transaction not found"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            },
            "put": {
                "description": "Replace a transaction. The old amount is reversed and the new one applied, moving between accounts if account_id changes.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "transactions"
                ],
                "summary": "Update transaction",
                "parameters": [
                    {
                        "description": "Transaction ID",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "description": "Transaction details",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Transaction updated"
                    },
                    "400": {
                        "description": "Invalid input"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "404": {
                        "description": "Transaction not found"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            },
            "delete": {
                "description": "Delete a transaction and reverse its effect on the account balance",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": [
                    "transactions"
                ],
                "summary": "Delete transaction",
                "parameters": [
                    {
                        "description": "Transaction ID",
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Transaction deleted"
                    },
                    "400": {
                        "description": "Invalid transaction ID"
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "404": {
                        "description": "Transaction not found"
                    },
                    "500": {
                        "description": "Server error"
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        },
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "NextFinance API",
	Description:      "NextFinance is a personal finance API for accounts, transactions, recurring payments, monthly budgets and receipt scanning.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
