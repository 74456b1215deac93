// Package docs holds the OpenAPI description served under /swagger.
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
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Вход администратора",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/services.LoginInput"}}],
                "responses": {"200": {"description": "token, expires_at, admin"}, "401": {"description": "Неверный логин или пароль"}}
            }
        },
        "/registration": {
            "get": {
                "tags": ["registration"],
                "summary": "Статус регистрации",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["registration"],
                "summary": "Открыть или закрыть регистрацию",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/services.UpdateRegistrationInput"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Дедлайн в прошлом"}}
            }
        },
        "/teams": {
            "get": {
                "tags": ["teams"],
                "summary": "Список команд",
                "parameters": [{"type": "string", "name": "status", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["teams"],
                "summary": "Зарегистрировать команду",
                "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/services.RegisterTeamInput"}}],
                "responses": {"201": {"description": "Команда и код"}, "400": {"description": "Ошибка валидации"}, "403": {"description": "Регистрация закрыта"}, "429": {"description": "Слишком много запросов"}}
            }
        },
        "/teams/{teamID}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["teams"],
                "summary": "Модерация заявки",
                "parameters": [
                    {"type": "integer", "name": "teamID", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/services.SetTeamStatusInput"}}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Команда не найдена"}}
            }
        },
        "/bracket": {
            "get": {
                "tags": ["bracket"],
                "summary": "Текущая сетка турнира",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["bracket"],
                "summary": "Сгенерировать сетку из одобренных команд",
                "responses": {"201": {"description": "Created"}, "422": {"description": "Недопустимые настройки или мало команд"}}
            }
        },
        "/bracket/estimate": {
            "get": {
                "tags": ["bracket"],
                "summary": "Оценка количества матчей",
                "parameters": [
                    {"type": "integer", "name": "teams", "in": "query"},
                    {"type": "string", "name": "bracket_type", "in": "query"},
                    {"type": "integer", "name": "upper_rounds", "in": "query"},
                    {"type": "integer", "name": "lower_rounds", "in": "query"},
                    {"type": "boolean", "name": "has_grand_final", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "422": {"description": "Unprocessable Entity"}}
            }
        },
        "/matches/{matchID}/result": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["matches"],
                "summary": "Записать счет матча",
                "description": "Исправление результата сбрасывает все зависящие от него матчи.",
                "parameters": [
                    {"type": "integer", "name": "matchID", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.recordResultRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Матч не найден"}, "409": {"description": "Матч не готов"}, "422": {"description": "Недопустимый счет"}}
            }
        }
    },
    "definitions": {
        "handlers.recordResultRequest": {
            "type": "object",
            "properties": {"score1": {"type": "integer"}, "score2": {"type": "integer"}}
        },
        "services.LoginInput": {
            "type": "object",
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "services.RegisterTeamInput": {
            "type": "object",
            "properties": {
                "team_name": {"type": "string"},
                "captain_name": {"type": "string"},
                "captain_telegram": {"type": "string"},
                "members_info": {"type": "string"}
            }
        },
        "services.SetTeamStatusInput": {
            "type": "object",
            "properties": {"status": {"type": "string", "enum": ["pending", "approved", "rejected"]}, "admin_comment": {"type": "string"}}
        },
        "services.UpdateRegistrationInput": {
            "type": "object",
            "properties": {"is_open": {"type": "boolean"}, "closes_at": {"type": "string", "format": "date-time"}, "clear_deadline": {"type": "boolean"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Team Registration API",
	Description:      "Регистрация команд и сетка single/double elimination.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
