package storage

import "embed"

//go:embed schema/*.sql
var schemaFS embed.FS

func schemaSQL(name string) (string, error) {
	data, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
