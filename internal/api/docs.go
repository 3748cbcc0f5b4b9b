package api

// docsHTML serves the OpenAPI reference. The two streaming endpoints are not
// huma operations, so they are listed in a side panel instead.
const docsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <meta name="description" content="Chart annotation engine: drawings, pointer input, frames and snapshots" />
  <title>Chartdraw API</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
  <style>
    .streams { position: fixed; bottom: 12px; right: 16px; z-index: 9999; max-width: 320px;
      background: #131722; border: 1px solid #2a2e39; border-radius: 6px; padding: 8px 12px;
      color: #d1d4dc; font: 12px/1.5 -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; }
    .streams code { color: #2962ff; }
  </style>
</head>
<body style="height: 100vh; margin: 0; position: relative;">
  <div class="streams" id="streams">
    <div><code>GET /api/v1/events?feeds=</code> chart events as SSE</div>
    <div><code>GET /api/v1/chart/{chart_id}/ws</code> pointer input over websocket, one reply per event</div>
  </div>
  <elements-api
    apiDescriptionUrl="/openapi.json"
    router="hash"
    layout="sidebar"
    tryItCredentialsPolicy="same-origin"
  />
</body>
</html>`
