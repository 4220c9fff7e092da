package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"risklab/internal/domain"
	"risklab/internal/observability"
	"risklab/internal/storage"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The server has no browser UI of its own; progress consumers decide
	// their own origin policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleProgress upgrades the connection and streams progress frames for an
// in-flight run. The stream ends with the final frame carrying the result,
// after which the socket closes normally. Frames the executor dropped for a
// slow consumer are simply absent; the final frame always arrives.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	run := s.lookup(id)
	if run == nil {
		// Finished runs have no stream left to attach to.
		if _, err := s.runStore.GetByID(r.Context(), id); err == nil {
			s.writeJSON(w, http.StatusConflict, errorResponse{Error: "run already finished"})
			return
		}
		s.writeError(w, storage.ErrNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("progress upgrade for run %s: %v", id, err)
		return
	}
	defer conn.Close()

	observability.ProgressStreamOpened()
	defer observability.ProgressStreamClosed()

	// Reader drains control frames and detects client disconnect.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-clientGone:
			return
		case update, ok := <-run.Progress():
			if !ok {
				// Stream closed without a final frame reaching us (another
				// consumer drained it, or the final send was dropped).
				// The done gate closes right after the stream, so this
				// does not block for long.
				if result, err := run.Wait(r.Context()); err == nil {
					conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
					conn.WriteJSON(finalFrame(result))
				}
				s.closeNormally(conn)
				return
			}

			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(update); err != nil {
				return
			}
			if update.Final {
				s.closeNormally(conn)
				return
			}
		}
	}
}

// finalFrame reconstructs the terminal progress frame from a result.
func finalFrame(result *domain.SimulationResult) domain.ProgressUpdate {
	return domain.ProgressUpdate{
		IterationsCompleted: result.IterationsCompleted,
		TotalIterations:     result.IterationsRequested,
		Final:               true,
		Result:              result,
	}
}

func (s *Server) closeNormally(conn *websocket.Conn) {
	deadline := time.Now().Add(wsWriteTimeout)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}
