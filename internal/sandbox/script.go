package sandbox

import (
	"encoding/json"
	"fmt"
)

// scriptTemplate is the Node.js wrapper generated around every custom tool
// body. It exposes exactly the three free names spec §4.C and §9 allow:
// `input` (parsed JSON), `http` (outbound HTTP capability), and `env` (a
// read view of the process environment) — then prints exactly one
// JSON-encoded envelope line describing the outcome, which sandbox.go
// decodes back into the final result string.
//
// Compile failures (bad syntax in the tool body) and runtime failures
// (thrown exceptions) are distinguished by which phase catches them, so the
// Go side can apply spec §4.C's two different message prefixes.
const scriptTemplate = `
'use strict';

const https = require('https');
const http_ = require('http');

function request(url, options) {
  options = options || {};
  return new Promise((resolve, reject) => {
    let target;
    try {
      target = new URL(url);
    } catch (e) {
      reject(new Error('invalid URL: ' + url));
      return;
    }
    const transport = target.protocol === 'http:' ? http_ : https;
    const req = transport.request(target, {
      method: options.method || 'GET',
      headers: options.headers || {},
    }, (res) => {
      let body = '';
      res.on('data', (chunk) => { body += chunk; });
      res.on('end', () => {
        resolve({ status: res.statusCode, headers: res.headers, body: body });
      });
    });
    req.on('error', reject);
    if (options.body) {
      req.write(options.body);
    }
    req.end();
  });
}

const httpCapability = {
  get: (url, options) => request(url, Object.assign({}, options, { method: 'GET' })),
  post: (url, body, options) => request(url, Object.assign({}, options, { method: 'POST', body: body })),
  request: request,
};

const envView = Object.freeze(Object.assign({}, process.env));

function emit(kind, value) {
  process.stdout.write(JSON.stringify({ kind: kind, value: value }) + '\n');
}

const AsyncFunction = Object.getPrototypeOf(async function () {}).constructor;

let fn;
try {
  fn = new AsyncFunction('input', 'http', 'env', %s);
} catch (compileErr) {
  emit('compileerror', String(compileErr && compileErr.message || compileErr));
  process.exit(0);
}

const input = %s;

fn(input, httpCapability, envView).then((result) => {
  if (result === undefined || result === null) {
    emit('none', '');
  } else if (typeof result === 'string') {
    emit('string', result);
  } else {
    try {
      emit('string', JSON.stringify(result, null, 2));
    } catch (e) {
      emit('string', String(result));
    }
  }
}).catch((runErr) => {
  emit('error', String(runErr && runErr.message || runErr));
});
`

// compileCheckTemplate attempts only the AsyncFunction construction step
// that scriptTemplate performs, so meta-tools can validate a tool body
// compiles before persisting it (spec §4.C, §4.I) without the cost of a
// full execution.
const compileCheckTemplate = `
'use strict';
const AsyncFunction = Object.getPrototypeOf(async function () {}).constructor;
try {
  new AsyncFunction('input', 'http', 'env', %s);
} catch (e) {
  process.stderr.write(String(e && e.message || e));
  process.exit(1);
}
process.exit(0);
`

// renderCompileCheckScript fills compileCheckTemplate with code, safely
// JSON-encoded as a JS string literal.
func renderCompileCheckScript(code string) (string, error) {
	codeLiteral, err := json.Marshal(code)
	if err != nil {
		return "", fmt.Errorf("encode tool body: %w", err)
	}
	return fmt.Sprintf(compileCheckTemplate, string(codeLiteral)), nil
}

// renderScript fills scriptTemplate with the tool's code body and the
// model-supplied input, each safely JSON-encoded as a JS literal.
func renderScript(code string, input json.RawMessage) (string, error) {
	codeLiteral, err := json.Marshal(code)
	if err != nil {
		return "", fmt.Errorf("encode tool body: %w", err)
	}

	if len(input) == 0 {
		input = json.RawMessage("null")
	}
	// Round-trip to validate the caller's input is well-formed JSON before
	// splicing it in verbatim.
	var probe any
	if err := json.Unmarshal(input, &probe); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}

	return fmt.Sprintf(scriptTemplate, string(codeLiteral), string(input)), nil
}
