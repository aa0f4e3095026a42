package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"gorm.io/gorm"

	"procurement-backend/internal/database"
	"procurement-backend/internal/llm"
	"procurement-backend/internal/pipeline"
	"procurement-backend/pkg/api"
	"procurement-backend/pkg/models"
)

// Worker consumes analysis tasks and runs the staged pipeline. Each task ends
// with exactly one terminal message (analysis_result or analysis_error)
// appended to the session log; the log is the only completion record.
type Worker struct {
	db          *gorm.DB
	pipeline    *pipeline.Pipeline
	llm         llm.Client
	concurrency int
	wg          sync.WaitGroup
}

// NewWorker builds a worker pool. The llm client is only used to phrase the
// final report and may be nil.
func NewWorker(db *gorm.DB, pipe *pipeline.Pipeline, client llm.Client, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Worker{db: db, pipeline: pipe, llm: client, concurrency: concurrency}
}

// Start launches the worker goroutines consuming from the receiver. They exit
// when the receiver's task channel closes.
func (w *Worker) Start(receiver Receiver) {
	slog.Info("starting analysis workers", "concurrency", w.concurrency)
	w.wg.Add(w.concurrency)
	for i := 0; i < w.concurrency; i++ {
		go w.run(i, receiver.Tasks())
	}
}

func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(id int, tasks <-chan Task) {
	defer w.wg.Done()
	for task := range tasks {
		w.processTask(id, task)
	}
	slog.Info("worker exiting, task channel closed", "worker", id)
}

func (w *Worker) processTask(id int, task Task) {
	if task.Type() != AnalysisQueue {
		slog.Warn("received task from unknown queue, discarding", "worker", id, "queue", task.Type())
		task.Reject() //nolint:errcheck
		return
	}

	var payload models.AnalysisTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		slog.Error("error unmarshalling analysis task, discarding", "worker", id, "error", err)
		task.Reject() //nolint:errcheck
		return
	}

	slog.Info("processing analysis task", "worker", id, "correlation_id", payload.CorrelationId, "sku", payload.Sku)

	if err := w.handleAnalysisTask(context.Background(), payload); err != nil {
		slog.Error("error processing analysis task", "worker", id, "correlation_id", payload.CorrelationId, "error", err)
		task.Nack() //nolint:errcheck
		return
	}

	task.Ack() //nolint:errcheck
}

// handleAnalysisTask is the TaskFailure boundary: any panic or unhandled
// error inside the pipeline is converted into a single analysis_error
// terminal message so the task is never left silently unresolved.
func (w *Worker) handleAnalysisTask(ctx context.Context, payload models.AnalysisTaskPayload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic inside analysis pipeline", "correlation_id", payload.CorrelationId, "panic", r)
			err = w.writeTerminal(payload, database.MessageAnalysisError,
				"A análise não pôde ser concluída por um erro interno. Tente novamente ou acione o time de compras.", "low", "")
		}
	}()

	done, checkErr := database.HasTerminalMessage(w.db, payload.SessionId, payload.CorrelationId)
	if checkErr != nil {
		return fmt.Errorf("error checking for existing terminal message: %w", checkErr)
	}
	if done {
		slog.Info("terminal message already present, skipping duplicate completion", "correlation_id", payload.CorrelationId)
		return nil
	}

	trace := w.pipeline.Run(ctx, payload.Sku, payload.Quantity)

	decision := trace.Decision()
	if decision == nil {
		return w.writeTerminal(payload, database.MessageAnalysisError,
			"A análise terminou sem uma decisão. Acione o time de compras.", "low", "")
	}

	content := w.formatReport(ctx, payload.Sku, trace)
	confidence := "high"
	if last := trace[len(trace)-1]; last.Confidence < 0.7 {
		confidence = "low"
	} else if last.Confidence < 0.8 {
		confidence = "medium"
	}

	return w.writeTerminal(payload, database.MessageAnalysisResult, content, confidence, string(decision.Decision))
}

// writeTerminal appends the single terminal message for this correlation id.
func (w *Worker) writeTerminal(payload models.AnalysisTaskPayload, messageType, content, confidence, decision string) error {
	metadata, err := json.Marshal(api.MessageMetadata{
		Type:          messageType,
		SKU:           payload.Sku,
		Confidence:    confidence,
		CorrelationID: payload.CorrelationId.String(),
		Async:         true,
		Decision:      decision,
	})
	if err != nil {
		return fmt.Errorf("error marshalling terminal message metadata: %w", err)
	}

	message := database.ChatMessage{
		SessionId: payload.SessionId,
		Sender:    database.SenderAgent,
		Content:   content,
		Metadata:  metadata,
	}
	if err := database.AppendMessage(w.db, &message); err != nil {
		return fmt.Errorf("error appending terminal message: %w", err)
	}

	slog.Info("appended terminal message", "correlation_id", payload.CorrelationId, "type", messageType)
	return nil
}

const reportSystemPrompt = `You write short purchase analysis reports in Portuguese for a purchasing
assistant. Rewrite the structured analysis below as clear prose for a buyer.
Keep every number exactly as given and keep the final decision explicit.`

// formatReport turns the StageResult chain into the natural-language terminal
// message. The deterministic rendering is always built first so a model
// failure only costs polish, never content.
func (w *Worker) formatReport(ctx context.Context, sku string, trace pipeline.Trace) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Análise de compra concluída para %s.\n\n", sku)

	for _, stage := range trace {
		switch stage.Stage {
		case pipeline.StageDemand:
			b.WriteString("📊 Demanda: ")
		case pipeline.StageMarket:
			b.WriteString("🏷️ Mercado: ")
		case pipeline.StageLogistics:
			b.WriteString("🚚 Logística: ")
		case pipeline.StageDecision:
			b.WriteString("✅ Decisão: ")
		}
		b.WriteString(stage.Justification)
		b.WriteString("\n")
	}

	if decision := trace.Decision(); decision != nil {
		fmt.Fprintf(&b, "\nDecisão final: %s\n", decisionLabel(decision.Decision))
		for _, step := range decision.NextSteps {
			fmt.Fprintf(&b, "→ %s\n", step)
		}
	}

	report := b.String()

	if w.llm != nil {
		polished, err := w.llm.Generate(ctx, reportSystemPrompt, report)
		if err == nil && strings.TrimSpace(polished) != "" {
			return polished
		}
		slog.Warn("report polishing call failed, using deterministic report", "error", err)
	}

	return report
}

func decisionLabel(decision pipeline.Decision) string {
	switch decision {
	case pipeline.DecisionApprove:
		return "APROVAR compra"
	case pipeline.DecisionReject:
		return "NÃO comprar"
	default:
		return "REVISÃO MANUAL necessária"
	}
}
