package api

import (
	"github.com/labstack/echo/v4"
)

func messageBody(msg string) echo.Map {
	return echo.Map{"message": msg}
}

func detailsBody(msg string, err error) echo.Map {
	return echo.Map{"message": msg, "details": err.Error()}
}

func taskErrorBody(msg string, err error) echo.Map {
	return echo.Map{"error": msg, "details": err.Error()}
}
