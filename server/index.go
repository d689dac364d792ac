package server

import (
	"html/template"
	"net/http"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>webgraph</title>
  <style>
    body {
      font-family: 'Helvetica Neue', Arial, sans-serif;
      margin: 0;
      padding: 20px;
      background: #f5f5f5;
      color: #333;
    }
    .container {
      max-width: 1200px;
      margin: 0 auto;
      background: white;
      padding: 30px;
      border-radius: 8px;
      box-shadow: 0 2px 10px rgba(0,0,0,0.1);
    }
    h1 {
      color: #2a2a2a;
      margin-top: 0;
      border-bottom: 2px solid #eee;
      padding-bottom: 10px;
    }
    canvas {
      display: block;
      border: 1px solid #ddd;
      cursor: default;
    }
    .status {
      margin-top: 10px;
      font-size: 13px;
      color: #777;
    }
  </style>
</head>
<body>
  <div class="container">
    <h1>webgraph</h1>
    <canvas id="graph" data-width="{{.Width}}" data-height="{{.Height}}"></canvas>
    <div class="status" id="status">connecting</div>
  </div>
  <script>
  (function () {
    const canvas = document.getElementById('graph');
    const status = document.getElementById('status');
    const ctx = canvas.getContext('2d');
    const width = Number(canvas.dataset.width);
    const height = Number(canvas.dataset.height);
    let ws = null;

    function fit() {
      const ratio = window.devicePixelRatio || 1;
      canvas.width = width * ratio;
      canvas.height = height * ratio;
      canvas.style.width = width + 'px';
      canvas.style.height = height + 'px';
      return ratio;
    }

    function send(msg) {
      if (ws && ws.readyState === WebSocket.OPEN) {
        ws.send(JSON.stringify(msg));
      }
    }

    function resize() {
      const ratio = fit();
      const rect = canvas.getBoundingClientRect();
      send({kind: 'resize', left: rect.left, top: rect.top, ratio: ratio});
    }

    function draw(ops) {
      for (const op of ops) {
        const x = op.x || 0, y = op.y || 0;
        switch (op.op) {
        case 'clear':
          ctx.setTransform(1, 0, 0, 1, 0, 0);
          ctx.fillStyle = '#f8f8f8';
          ctx.fillRect(0, 0, canvas.width, canvas.height);
          break;
        case 'scale':
          ctx.setTransform(op.ratio, 0, 0, op.ratio, 0, 0);
          break;
        case 'line':
          ctx.strokeStyle = '#666666';
          ctx.lineWidth = 1;
          ctx.beginPath();
          ctx.moveTo(x, y);
          ctx.lineTo(op.x2 || 0, op.y2 || 0);
          ctx.stroke();
          break;
        case 'fill':
          ctx.fillStyle = '#4285F4';
          ctx.fillRect(x, y, op.w || 0, op.h || 0);
          break;
        case 'stroke':
          ctx.strokeStyle = '#1a1a1a';
          ctx.lineWidth = op.lw || 1;
          ctx.strokeRect(x, y, op.w || 0, op.h || 0);
          break;
        }
      }
    }

    function connect() {
      const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
      ws = new WebSocket(scheme + location.host + '/ws');
      ws.onopen = function () {
        status.textContent = 'connected';
        resize();
      };
      ws.onmessage = function (event) {
        const msg = JSON.parse(event.data);
        if (msg.reload) {
          status.textContent = 'graph changed, reconnecting';
          ws.close();
          return;
        }
        if (msg.ops) {
          draw(msg.ops);
        }
      };
      ws.onclose = function () {
        status.textContent = 'disconnected';
        setTimeout(connect, 500);
      };
    }

    canvas.addEventListener('mousemove', e => send({kind: 'move', x: e.clientX, y: e.clientY}));
    canvas.addEventListener('mousedown', e => send({kind: 'down', x: e.clientX, y: e.clientY}));
    canvas.addEventListener('mouseup', e => send({kind: 'up', x: e.clientX, y: e.clientY}));
    canvas.addEventListener('mouseleave', () => send({kind: 'leave'}));
    window.addEventListener('resize', resize);
    window.addEventListener('scroll', resize);

    fit();
    connect();
  })();
  </script>
</body>
</html>
`))

// handleIndex renders the canvas page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, s.cfg.Size); err != nil {
		s.logger.Warn("render index", "err", err)
	}
}
