package db

import (
	"database/sql"
	"fmt"
	"os"
)

type Database struct {
	dbName      string
	MysqlClient *sql.DB
}

func NewDatabase(client *sql.DB, dbName string) *Database {
	return &Database{
		dbName:      dbName,
		MysqlClient: client,
	}
}

// CreateDatabaseAndTable creates the database if missing and applies every
// file under migrations/ in directory order.
func (d *Database) CreateDatabaseAndTable() error {
	createDatabase := `CREATE DATABASE IF NOT EXISTS ` + d.dbName
	if _, err := d.MysqlClient.Exec(createDatabase); err != nil {
		return fmt.Errorf("failed to create db %s: %w", d.dbName, err)
	}

	useDatabase := `USE ` + d.dbName
	if _, err := d.MysqlClient.Exec(useDatabase); err != nil {
		return fmt.Errorf("failed to use db %s: %w", d.dbName, err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	path := wd + "/migrations/"
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}

	for _, e := range entries {
		c, err := os.ReadFile(path + e.Name())
		if err != nil {
			return err
		}

		if _, err := d.MysqlClient.Exec(string(c)); err != nil {
			return fmt.Errorf("migration %s: %w", e.Name(), err)
		}
	}

	return nil
}
