package flowplot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
)

// Serves a single figure: the rendered PNG, its metadata and its data over a
// websocket.
type HttpServer struct {
	figure *Figure
	host   string
	port   uint16
	mux    *http.ServeMux
	logger logrus.FieldLogger

	// Open the figure in a browser once the server listens.
	OpenBrowser bool
}

func NewHttpServer(figure *Figure, host string, port uint16) *HttpServer {
	s := &HttpServer{
		figure: figure,
		host:   host,
		port:   port,
		mux:    http.NewServeMux(),
		logger: logrus.WithField("tag", "HttpServer"),
	}

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/figure.png", s.handleFigure)
	s.mux.HandleFunc("/metadata", s.handleMetadata)
	s.mux.HandleFunc("/ws", s.handleWebSocket)

	return s
}

func allowCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "content-type")
	w.Header().Set("Access-Control-Allow-Methods", "*")
}

func (s *HttpServer) handleIndex(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		http.NotFound(w, req)
		return
	}

	http.Redirect(w, req, "/figure.png", http.StatusFound)
}

func (s *HttpServer) handleFigure(w http.ResponseWriter, req *http.Request) {
	allowCORS(w)

	// Render into a buffer first so a failed render is still a clean 500.
	var buf bytes.Buffer
	if err := s.figure.Render(&buf); err != nil {
		s.logger.WithError(err).Error("failed to render figure")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.WithError(err).Warn("failed to write figure")
	}
}

func (s *HttpServer) handleMetadata(w http.ResponseWriter, req *http.Request) {
	allowCORS(w)

	data, err := json.Marshal(s.figure.Metadata())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// Sends the metadata, one DATA message per panel and a STREAM_END, then
// closes the connection.
func (s *HttpServer) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to accept new websocket connection")
		return
	}

	ctx := c.CloseRead(req.Context()) // We only write to this websocket.

	for _, msg := range FigureMessages(s.figure) {
		buf, err := EncodeWSMessage(msg)
		if err != nil {
			s.logger.WithError(err).Error("failed to encode websocket message")
			c.Close(websocket.StatusInternalError, "encoding failed")
			return
		}

		if err := c.Write(ctx, websocket.MessageBinary, buf); err != nil {
			// At this point the websocket closed, so we don't even need to send anything
			s.logger.WithError(err).Warn("websocket write failed and closed")
			return
		}
	}

	s.logger.Debug("figure sent, closing websocket")
	c.Close(websocket.StatusNormalClosure, "")
}

func (s *HttpServer) Handler() http.Handler {
	return s.mux
}

func (s *HttpServer) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(int(s.port)))
}

func (s *HttpServer) Run() error {
	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr(), err)
	}

	url := fmt.Sprintf("http://%s/", listener.Addr())
	s.logger.Infof("serving figure at %s", url)
	if s.OpenBrowser {
		openBrowser(url)
	}

	return http.Serve(listener, s.mux)
}
