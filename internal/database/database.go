package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"truco-game/internal/game"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

const tableName = "truco_results"

const columns = "id, room_code, created_at, player1, player2, player3, player4, team1_score, team2_score, winner_team, rounds"

type Service struct {
	db         *sql.DB
	m          *sync.Mutex
	driver     string
	table_name string
}

// New opens the results database and creates the table when missing.
// driver is DriverSQLite or DriverPostgres.
func New(driver, dsn string) (*Service, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	sqlStmt := `
	create table if not exists ` + tableName + ` (
		id text not null primary key,
		room_code text,
		created_at text,
		player1 text,
		player2 text,
		player3 text,
		player4 text,
		team1_score integer,
		team2_score integer,
		winner_team integer,
		rounds integer
	);
	`
	if _, err := db.Exec(sqlStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("create %s table: %w", tableName, err)
	}

	return &Service{
		db:         db,
		m:          &sync.Mutex{},
		driver:     driver,
		table_name: tableName,
	}, nil
}

func (s *Service) Close() error {
	return s.db.Close()
}

func (s *Service) TableName() string {
	return s.table_name
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (s *Service) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func scanResult(scanner interface{ Scan(...any) error }) (GameResult, error) {
	var result GameResult
	err := scanner.Scan(
		&result.ID,
		&result.RoomCode,
		&result.CreatedAt,
		&result.Player1,
		&result.Player2,
		&result.Player3,
		&result.Player4,
		&result.Team1Score,
		&result.Team2Score,
		&result.WinnerTeam,
		&result.Rounds)
	return result, err
}

func (s *Service) query(ctx context.Context, query string, args ...any) ([]GameResult, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []GameResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (s *Service) GetAll(ctx context.Context) ([]GameResult, error) {
	s.m.Lock()
	defer s.m.Unlock()
	return s.query(ctx, "SELECT "+columns+" FROM "+s.table_name+" ORDER BY created_at")
}

func (s *Service) GetByID(ctx context.Context, id string) (GameResult, error) {
	s.m.Lock()
	defer s.m.Unlock()
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+columns+" FROM "+s.table_name+" WHERE id = ?"), id)
	result, err := scanResult(row)
	if err != nil {
		return GameResult{}, err
	}
	return result, nil
}

func (s *Service) Insert(ctx context.Context, result GameResult) error {
	s.m.Lock()
	defer s.m.Unlock()
	_, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO "+s.table_name+
		" ("+columns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		result.ID,
		result.RoomCode,
		result.CreatedAt,
		result.Player1,
		result.Player2,
		result.Player3,
		result.Player4,
		result.Team1Score,
		result.Team2Score,
		result.WinnerTeam,
		result.Rounds)
	if err != nil {
		return fmt.Errorf("insert result %s: %w", result.ID, err)
	}
	return nil
}

// GetByPlayer returns sql.ErrNoRows when the player has no recorded games.
func (s *Service) GetByPlayer(ctx context.Context, playerName string) ([]GameResult, error) {
	s.m.Lock()
	defer s.m.Unlock()
	results, err := s.query(ctx, "SELECT "+columns+" FROM "+s.table_name+
		" WHERE player1 = ? OR player2 = ? OR player3 = ? OR player4 = ? ORDER BY created_at",
		playerName,
		playerName,
		playerName,
		playerName)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, sql.ErrNoRows
	}
	return results, nil
}

// Record stores the result of a finished game.
func (s *Service) Record(ctx context.Context, g *game.Game) error {
	return s.Insert(ctx, ResultFromGame(g))
}
