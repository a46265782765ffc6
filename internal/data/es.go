package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/xiaoxue1272/histories-collector/internal/biz/domain"
	"github.com/xiaoxue1272/histories-collector/internal/biz/repo"
	"github.com/xiaoxue1272/histories-collector/internal/conf"
)

// historyRepo implements the History repository on Elasticsearch
type historyRepo struct {
	es           *elasticsearch.Client
	state        repo.StateRepo
	logger       *log.Logger
	prefix       string
	policyName   string
	templateName string
}

// NewESClient creates the Elasticsearch client from configuration
func NewESClient(cfg conf.ESConfig) (*elasticsearch.Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:           cfg.Hosts,
		Username:            cfg.User,
		Password:            cfg.Password,
		CompressRequestBody: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create es client: %w", err)
	}
	return es, nil
}

// NewHistoryRepo creates a new History repository
func NewHistoryRepo(es *elasticsearch.Client, prefix string, state repo.StateRepo, logger *log.Logger) repo.HistoryRepo {
	return &historyRepo{
		es:           es,
		state:        state,
		logger:       logger,
		prefix:       prefix,
		policyName:   prefix + "-policy",
		templateName: prefix + "-template",
	}
}

// Ping verifies the cluster is reachable
func (r *historyRepo) Ping(ctx context.Context) error {
	res, err := r.es.Ping(r.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to ping es: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to ping es: %s", res.Status())
	}
	return nil
}

// EnsureIndices provisions lifecycle policy, index template and, on a fresh
// deployment, the first backing index with the write alias. Policy and
// template writes are idempotent and reapplied on every startup.
func (r *historyRepo) EnsureIndices(ctx context.Context) error {
	if err := r.putLifecyclePolicy(ctx); err != nil {
		return err
	}
	if err := r.putIndexTemplate(ctx); err != nil {
		return err
	}
	return r.ensureWriteIndex(ctx)
}

func (r *historyRepo) putLifecyclePolicy(ctx context.Context) error {
	body, err := json.Marshal(ilmPolicy())
	if err != nil {
		return fmt.Errorf("failed to encode ilm policy: %w", err)
	}

	res, err := r.es.ILM.PutLifecycle(r.policyName,
		r.es.ILM.PutLifecycle.WithBody(bytes.NewReader(body)),
		r.es.ILM.PutLifecycle.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to put ilm policy: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to put ilm policy %q: %s", r.policyName, responseError(res))
	}

	r.logger.Info("ilm policy applied", "policy", r.policyName)
	return nil
}

func (r *historyRepo) putIndexTemplate(ctx context.Context) error {
	body, err := json.Marshal(indexTemplate(r.prefix, r.policyName))
	if err != nil {
		return fmt.Errorf("failed to encode index template: %w", err)
	}

	res, err := r.es.Indices.PutIndexTemplate(r.templateName, bytes.NewReader(body),
		r.es.Indices.PutIndexTemplate.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to put index template: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to put index template %q: %s", r.templateName, responseError(res))
	}

	r.logger.Info("index template applied", "template", r.templateName)
	return nil
}

// ensureWriteIndex checks the write alias and creates the first backing index
// when it is missing. Only a clean 404 counts as missing, a transport or
// cluster error aborts startup instead of racing a half-alive cluster.
func (r *historyRepo) ensureWriteIndex(ctx context.Context) error {
	indices, exists, err := r.aliasIndices(ctx)
	if err != nil {
		return err
	}
	if exists {
		r.logger.Info("write alias already bound", "alias", WriteAlias, "indices", indices)
		return nil
	}

	bootstrapped, err := r.state.BootstrapCompleted(ctx, WriteAlias)
	if err != nil {
		return fmt.Errorf("failed to read bootstrap state: %w", err)
	}
	if bootstrapped {
		r.logger.Warn("write alias missing after an earlier bootstrap, recreating initial index", "alias", WriteAlias)
	} else {
		r.logger.Info("fresh deployment, creating initial index", "alias", WriteAlias)
	}

	initial := r.prefix + "-000001"
	body, err := json.Marshal(initialIndex(r.policyName))
	if err != nil {
		return fmt.Errorf("failed to encode initial index: %w", err)
	}

	res, err := r.es.Indices.Create(initial,
		r.es.Indices.Create.WithBody(bytes.NewReader(body)),
		r.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create initial index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to create initial index %q: %s", initial, responseError(res))
	}

	r.logger.Info("initial index created", "index", initial, "alias", WriteAlias)

	if err := r.state.MarkBootstrapped(ctx, WriteAlias, r.prefix); err != nil {
		return fmt.Errorf("failed to mark bootstrap state: %w", err)
	}
	return nil
}

// aliasIndices resolves which backing indices the write alias points at.
func (r *historyRepo) aliasIndices(ctx context.Context) ([]string, bool, error) {
	res, err := r.es.Indices.GetAlias(
		r.es.Indices.GetAlias.WithName(WriteAlias),
		r.es.Indices.GetAlias.WithContext(ctx),
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up alias: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if res.IsError() {
		return nil, false, fmt.Errorf("failed to look up alias %q: %s", WriteAlias, responseError(res))
	}

	var byIndex map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&byIndex); err != nil {
		return nil, false, fmt.Errorf("failed to decode alias response: %w", err)
	}
	indices := make([]string, 0, len(byIndex))
	for name := range byIndex {
		indices = append(indices, name)
	}
	return indices, true, nil
}

// Save writes the document through the write alias, create-only. A duplicate
// id or a missing alias is an error, never a silent overwrite.
func (r *historyRepo) Save(ctx context.Context, id int64, doc *domain.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	res, err := r.es.Index(WriteAlias, bytes.NewReader(payload),
		r.es.Index.WithDocumentID(strconv.FormatInt(id, 10)),
		r.es.Index.WithOpType("create"),
		r.es.Index.WithRequireAlias(true),
		r.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to save message %d: %s", id, responseError(res))
	}

	var result struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode index response: %w", err)
	}
	if result.Result != "created" {
		return fmt.Errorf("failed to save message %d: unexpected result %q", id, result.Result)
	}
	return nil
}

// Close is a no-op, the underlying client has no resources to release.
func (r *historyRepo) Close() error {
	return nil
}

func responseError(res *esapi.Response) string {
	body, err := io.ReadAll(res.Body)
	if err != nil || len(body) == 0 {
		return res.Status()
	}
	return res.Status() + " " + string(body)
}
