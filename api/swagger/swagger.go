package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Internship Attendance API",
        "description": "QR scan attendance, schedule configuration, leave reconciliation and daily logbooks for the internship portal",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Attendance", "description": "Check-in and check-out scans"},
        {"name": "Scan Tokens", "description": "QR credentials"},
        {"name": "Schedule", "description": "Versioned entry/departure schedule and geofence"},
        {"name": "Leave Requests", "description": "Leave workflow and attendance backfill"}
    ],
    "paths": {
        "/attendance/scan": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record a check-in or check-out scan",
                "description": "Sets the X-Play-Sound header to success or error.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload or credential", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student or schedule missing", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Too early or already closed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Outside geofence", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Storage temporarily unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/today": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Today's attendance for the calling student",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List attendance records",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["present", "excused", "absent"]},
                    {"name": "date_from", "in": "query", "type": "string", "format": "date"},
                    {"name": "date_to", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"},
                    {"name": "sort_order", "in": "query", "type": "string", "enum": ["asc", "desc"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scan-tokens": {
            "post": {
                "tags": ["Scan Tokens"],
                "summary": "Mint a scan credential for the calling student",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/scan-tokens": {
            "post": {
                "tags": ["Scan Tokens"],
                "summary": "Mint a scan credential for a student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/active": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Get the active schedule",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not configured", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule": {
            "put": {
                "tags": ["Schedule"],
                "summary": "Replace the active schedule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/history": {
            "get": {
                "tags": ["Schedule"],
                "summary": "List schedule versions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leave-requests": {
            "get": {
                "tags": ["Leave Requests"],
                "summary": "List leave requests visible to the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Leave Requests"],
                "summary": "Submit a leave request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLeaveRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leave-requests/{id}": {
            "get": {
                "tags": ["Leave Requests"],
                "summary": "Get a leave request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leave-requests/{id}/review": {
            "put": {
                "tags": ["Leave Requests"],
                "summary": "Approve or reject a leave request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewLeaveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leave-requests/{id}/backfill": {
            "post": {
                "tags": ["Leave Requests"],
                "summary": "Re-run the attendance backfill of an approved leave request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/logbooks": {
            "get": {
                "tags": ["Logbooks"],
                "summary": "List logbook entries visible to the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string", "format": "date"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "approved", "rejected"]},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Logbooks"],
                "summary": "Record the day's logbook entry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLogbookRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Entry exists for date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/logbooks/{id}": {
            "get": {
                "tags": ["Logbooks"],
                "summary": "Get a logbook entry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Logbooks"],
                "summary": "Resubmit a rejected logbook entry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviseLogbookRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Entry is not rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Logbooks"],
                "summary": "Delete an unsigned logbook entry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Entry is signed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/logbooks/{id}/review": {
            "put": {
                "tags": ["Logbooks"],
                "summary": "Sign or reject a logbook entry",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewLogbookRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ScanRequest": {
            "type": "object",
            "properties": {
                "credential": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "device_info": {"type": "string"}
            },
            "required": ["credential", "latitude", "longitude"]
        },
        "ReplaceScheduleRequest": {
            "type": "object",
            "properties": {
                "entry_time": {"type": "string", "example": "08:00"},
                "departure_time": {"type": "string", "example": "17:00"},
                "grace_period_minutes": {"type": "integer", "example": 15},
                "radius_meters": {"type": "number", "example": 100},
                "center_lat": {"type": "number"},
                "center_lon": {"type": "number"}
            },
            "required": ["entry_time", "departure_time", "grace_period_minutes", "radius_meters", "center_lat", "center_lon"]
        },
        "CreateLeaveRequest": {
            "type": "object",
            "properties": {
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"},
                "category": {"type": "string", "enum": ["sick", "personal", "academic", "other"]},
                "reason": {"type": "string"}
            },
            "required": ["start_date", "end_date", "category", "reason"]
        },
        "ReviewLeaveRequest": {
            "type": "object",
            "properties": {
                "decision": {"type": "string", "enum": ["approved", "rejected"]},
                "review_note": {"type": "string"}
            },
            "required": ["decision"]
        },
        "CreateLogbookRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "format": "date"},
                "activity": {"type": "string"},
                "progress": {"type": "integer", "minimum": 0, "maximum": 100}
            },
            "required": ["date", "activity", "progress"]
        },
        "ReviseLogbookRequest": {
            "type": "object",
            "properties": {
                "activity": {"type": "string"},
                "progress": {"type": "integer", "minimum": 0, "maximum": 100}
            },
            "required": ["activity", "progress"]
        },
        "ReviewLogbookRequest": {
            "type": "object",
            "properties": {
                "decision": {"type": "string", "enum": ["approved", "rejected"]},
                "review_note": {"type": "string", "description": "Required when rejecting"}
            },
            "required": ["decision"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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
