package db

import (
	"testing"

	"github.com/hostrate/apiserver/config"
	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "plain",
			cfg:  config.DatabaseConfig{Host: "localhost", Port: 5432, User: "hostrate", Password: "pw", DBName: "hostrate_db"},
			want: "postgres://hostrate:pw@localhost:5432/hostrate_db?sslmode=disable",
		},
		{
			name: "ssl and escaped password",
			cfg:  config.DatabaseConfig{Host: "db", Port: 6543, User: "u", Password: "p@ss/word", DBName: "d", UseSSL: true},
			want: "postgres://u:p%40ss%2Fword@db:6543/d?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DSN(tt.cfg))
		})
	}
}
