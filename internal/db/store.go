package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcusFernando/Bh-licit/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type ListParams struct {
	Status   string // "rejeitado", "aprovado", other explicit status, or "" (default radar view)
	Priority string
	Days     int
	Search   string
	Limit    int
	Offset   int
}

type ListResult struct {
	Items []models.Licitacao `json:"items"`
	Total int                `json:"total"`
	Limit int                `json:"limit"`
	Page  int                `json:"page"`
}

// selectCols is the column list shared by all licitacao queries.
const selectCols = `id, pncp_id, titulo, orgao_nome, orgao_cnpj, estado_sigla, cidade,
	data_publicacao, data_abertura, link_edital, categoria,
	status, rejection_reason, is_me_epp_exclusive, priority, score,
	resumo_ia, risco_ia, created_at, updated_at`

func scanLicitacao(scan func(dest ...interface{}) error) (models.Licitacao, error) {
	var l models.Licitacao
	var orgaoNome, orgaoCNPJ, estado, cidade, link, categoria *string
	var rejectionReason, resumo, risco *string

	err := scan(
		&l.ID, &l.PNCPID, &l.Titulo, &orgaoNome, &orgaoCNPJ, &estado, &cidade,
		&l.DataPublicacao, &l.DataAbertura, &link, &categoria,
		&l.Status, &rejectionReason, &l.IsMeEppExclusive, &l.Priority, &l.Score,
		&resumo, &risco, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return l, err
	}

	if orgaoNome != nil {
		l.OrgaoNome = *orgaoNome
	}
	if orgaoCNPJ != nil {
		l.OrgaoCNPJ = *orgaoCNPJ
	}
	if estado != nil {
		l.EstadoSigla = *estado
	}
	if cidade != nil {
		l.Cidade = *cidade
	}
	if link != nil {
		l.LinkEdital = *link
	}
	if categoria != nil {
		l.Categoria = *categoria
	}
	if rejectionReason != nil {
		l.RejectionReason = *rejectionReason
	}
	if resumo != nil {
		l.ResumoIA = *resumo
	}
	if risco != nil {
		l.RiscoIA = *risco
	}

	return l, nil
}

// InsertLicitacao inserts a classified record keyed by its PNCP id and
// reports whether a row was actually created. An existing row is left
// untouched: a later ingestion run never overwrites an earlier admission
// decision, and a uniqueness race resolves to "already processed".
func (s *Store) InsertLicitacao(ctx context.Context, l models.Licitacao) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO licitacoes (
			pncp_id, titulo, orgao_nome, orgao_cnpj, estado_sigla, cidade,
			data_publicacao, data_abertura, link_edital, categoria,
			status, rejection_reason, is_me_epp_exclusive, priority, score,
			resumo_ia, risco_ia
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17
		)
		ON CONFLICT (pncp_id) DO NOTHING
		RETURNING id
	`,
		l.PNCPID, l.Titulo, nilIfEmpty(l.OrgaoNome), nilIfEmpty(l.OrgaoCNPJ), nilIfEmpty(l.EstadoSigla), nilIfEmpty(l.Cidade),
		l.DataPublicacao, l.DataAbertura, nilIfEmpty(l.LinkEdital), nilIfEmpty(l.Categoria),
		l.Status, nilIfEmpty(l.RejectionReason), l.IsMeEppExclusive, l.Priority, l.Score,
		nilIfEmpty(l.ResumoIA), nilIfEmpty(l.RiscoIA),
	).Scan(&id)
	if err != nil {
		// DO NOTHING yields no row when the record already exists.
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		// A concurrent run can still lose the conflict check; treat the
		// unique violation as "already processed", not as a failure.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("insert licitacao %s: %w", l.PNCPID, err)
	}
	return id, true, nil
}

func (s *Store) GetLicitacao(ctx context.Context, id int64) (*models.Licitacao, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM licitacoes WHERE id = $1", selectCols), id)
	l, err := scanLicitacao(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("licitacao %d not found: %w", id, err)
	}
	return &l, nil
}

func (s *Store) GetLicitacaoByPNCPID(ctx context.Context, pncpID string) (*models.Licitacao, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM licitacoes WHERE pncp_id = $1", selectCols), pncpID)
	l, err := scanLicitacao(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("licitacao %s not found: %w", pncpID, err)
	}
	return &l, nil
}

func (s *Store) ListLicitacoes(ctx context.Context, params ListParams) (*ListResult, error) {
	where, args := buildListWhere(params)
	argIdx := len(args) + 1

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM licitacoes "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	if params.Limit <= 0 {
		params.Limit = 20
	}

	sql := fmt.Sprintf(
		"SELECT %s FROM licitacoes %s ORDER BY score DESC, data_publicacao DESC NULLS LAST, created_at DESC LIMIT $%d OFFSET $%d",
		selectCols, where, argIdx, argIdx+1,
	)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	items := []models.Licitacao{}
	for rows.Next() {
		l, err := scanLicitacao(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	page := 1
	if params.Limit > 0 {
		page = params.Offset/params.Limit + 1
	}

	return &ListResult{Items: items, Total: total, Limit: params.Limit, Page: page}, nil
}

// buildListWhere mirrors the radar views: the default view hides rejected
// records, explicit status views show exactly that status, and the
// high-priority view additionally excludes rejected records.
func buildListWhere(params ListParams) (string, []interface{}) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	switch {
	case params.Status != "":
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, params.Status)
		argIdx++
	case params.Priority != "":
		where += fmt.Sprintf(" AND priority = $%d AND status <> 'rejeitado'", argIdx)
		args = append(args, params.Priority)
		argIdx++
	default:
		where += " AND status <> 'rejeitado'"
	}

	if params.Days > 0 {
		where += fmt.Sprintf(" AND data_publicacao >= NOW() - ($%d * INTERVAL '1 day')", argIdx)
		args = append(args, params.Days)
		argIdx++
	}

	if q := strings.TrimSpace(params.Search); q != "" {
		where += fmt.Sprintf(" AND (titulo ILIKE '%%' || $%d || '%%' OR orgao_nome ILIKE '%%' || $%d || '%%' OR cidade ILIKE '%%' || $%d || '%%')", argIdx, argIdx, argIdx)
		args = append(args, q)
		argIdx++
	}

	return where, args
}

// UpdateAnalysis attaches the enrichment output to a stored record. Status,
// priority and score are deliberately not part of this statement: the
// enrichment pass must never change an admission decision.
func (s *Store) UpdateAnalysis(ctx context.Context, id int64, resumo, risco string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE licitacoes
		SET resumo_ia = $1, risco_ia = $2, updated_at = NOW()
		WHERE id = $3
	`, resumo, nilIfEmpty(risco), id)
	if err != nil {
		return fmt.Errorf("update analysis for %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update analysis for %d: no such row", id)
	}
	return nil
}

// SetStatus is the manual override path (approve/reject from review).
func (s *Store) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE licitacoes SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("set status for %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set status for %d: no such row", id)
	}
	return nil
}

// ListPendingAnalysis returns admitted records that have not received an
// enrichment pass yet, oldest first.
func (s *Store) ListPendingAnalysis(ctx context.Context, limit int) ([]models.Licitacao, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM licitacoes
		WHERE resumo_ia IS NULL AND status IN ('recebido', 'aprovado')
		ORDER BY created_at ASC
		LIMIT $1
	`, selectCols), limit)
	if err != nil {
		return nil, fmt.Errorf("pending analysis query failed: %w", err)
	}
	defer rows.Close()

	var items []models.Licitacao
	for rows.Next() {
		l, err := scanLicitacao(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("pending analysis scan failed: %w", err)
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

func (s *Store) GetItems(ctx context.Context, licitacaoID int64) ([]models.LicitacaoItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, licitacao_id, numero_item, descricao, quantidade, unidade, valor_unitario, COALESCE(codigo_item, '')
		FROM licitacao_itens
		WHERE licitacao_id = $1
		ORDER BY numero_item ASC, id ASC
	`, licitacaoID)
	if err != nil {
		return nil, fmt.Errorf("items query failed: %w", err)
	}
	defer rows.Close()

	var items []models.LicitacaoItem
	for rows.Next() {
		var it models.LicitacaoItem
		if err := rows.Scan(&it.ID, &it.LicitacaoID, &it.NumeroItem, &it.Descricao, &it.Quantidade, &it.Unidade, &it.ValorUnitario, &it.CodigoItem); err != nil {
			return nil, fmt.Errorf("items scan failed: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// InsertItems commits a resolved item set atomically. Nothing is written
// when rows already exist for the tender, keeping resolution write-once.
func (s *Store) InsertItems(ctx context.Context, licitacaoID int64, items []models.LicitacaoItem) error {
	if len(items) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var existing int
		if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM licitacao_itens WHERE licitacao_id = $1", licitacaoID).Scan(&existing); err != nil {
			return fmt.Errorf("item existence check failed: %w", err)
		}
		if existing > 0 {
			return nil
		}

		for _, it := range items {
			if _, err := tx.Exec(ctx, `
				INSERT INTO licitacao_itens (licitacao_id, numero_item, descricao, quantidade, unidade, valor_unitario, codigo_item)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, licitacaoID, it.NumeroItem, it.Descricao, it.Quantidade, it.Unidade, it.ValorUnitario, nilIfEmpty(it.CodigoItem)); err != nil {
				return fmt.Errorf("insert item %d: %w", it.NumeroItem, err)
			}
		}
		return nil
	})
}

// RecordRunStart creates a sync_runs row and returns its id, or "" when
// bookkeeping is unavailable (bookkeeping never blocks a run).
func (s *Store) RecordRunStart(ctx context.Context) string {
	var runID string
	err := s.pool.QueryRow(ctx, "INSERT INTO sync_runs (status) VALUES ('running') RETURNING run_id::text").Scan(&runID)
	if err != nil {
		return ""
	}
	return runID
}

func (s *Store) RecordRunFinish(ctx context.Context, runID, status string, found, created, rejected, errCount int) {
	if runID == "" {
		return
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE sync_runs
		SET status = $1, items_found = $2, items_new = $3, items_rejected = $4, errors = $5, completed_at = NOW()
		WHERE run_id = $6::uuid
	`, status, found, created, rejected, errCount, runID)
	if err != nil {
		// Bookkeeping only; the run result itself is already committed.
		return
	}
}

func (s *Store) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var total int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM licitacoes").Scan(&total)
	stats["total"] = total

	statusCounts := map[string]int{}
	rows, err := s.pool.Query(ctx, "SELECT status, COUNT(*) FROM licitacoes GROUP BY status")
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var status string
			var count int
			if scanErr := rows.Scan(&status, &count); scanErr == nil {
				statusCounts[status] = count
			}
		}
	}
	stats["status_counts"] = statusCounts

	var analyzed int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM licitacoes WHERE resumo_ia IS NOT NULL").Scan(&analyzed)
	stats["analyzed"] = analyzed

	var lastRun *string
	s.pool.QueryRow(ctx, "SELECT MAX(completed_at)::text FROM sync_runs WHERE status = 'completed'").Scan(&lastRun)
	if lastRun != nil {
		stats["last_sync_at"] = *lastRun
	}

	return stats, nil
}

// nilIfEmpty returns nil for empty strings so NULL is stored in the DB.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
