package devserver

import (
	"bytes"
)

// reloadClient speaks the engine.io v4 websocket framing directly, so the
// page needs no client library: "0" is the open packet, "2"/"3" are
// ping/pong, "40" joins the default namespace and "42" carries an event.
const reloadClient = `<script>
(function () {
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  function connect() {
    var ws = new WebSocket(scheme + location.host + "/socket.io/?EIO=4&transport=websocket");
    ws.onmessage = function (e) {
      var d = String(e.data);
      if (d === "2") { ws.send("3"); return; }
      if (d.charAt(0) === "0") { ws.send("40"); return; }
      if (d.indexOf('42["reload"') === 0) { location.reload(); }
    };
    ws.onclose = function () { setTimeout(connect, 1000); };
  }
  connect();
})();
</script>
`

var closingBody = []byte("</body>")

// inject inserts the reload client before the last </body>, or appends it
// when the page has none.
func inject(page []byte) []byte {
	i := bytes.LastIndex(bytes.ToLower(page), closingBody)
	if i < 0 {
		return append(append([]byte(nil), page...), reloadClient...)
	}
	out := make([]byte, 0, len(page)+len(reloadClient))
	out = append(out, page[:i]...)
	out = append(out, reloadClient...)
	return append(out, page[i:]...)
}
