package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-system-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "course_system", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=course_system sslmode=disable", dsn)
}
