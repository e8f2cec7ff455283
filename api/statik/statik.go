// Code generated by statik. DO NOT EDIT.

package statik

import (
	"github.com/rakyll/statik/fs"
)

func init() {
	data := "PK\x03\x04\x14\x00\x08\x00\x08\x00\x801\x1b]\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\n\x00	\x00index.htmlUT\x05\x00\x010\xd5\x8fj\xd4V_o\xdb6\x10\x7f\xef\xa7\xb8\xaa\x18(\xa3\x89\xe4l}\x18\x14\xc9\xc3\xd6f\xd8\x86n-\x9a\xeca\x18\x8a\x82\x12O6\x13\x8aTI\xca\xa9\xe6\xfa\xbb\x0f$%YN\xd6 {\x19\xb0'\xd3\xbc?\xbf\xbb\xdf\xfd\x11\xf3\xa7\xaf\xde\xbc\xbc\xfa\xe3\xed\x05ll#VOr\xf7\x03\x82\xcau\x11\xa1\x8c\xdc\x05R\xb6z\x02\x907h)T\x1b\xaa\x0d\xda\"\xeal}\xfam\xe4\x05\x96[\x81\xab\x06\x19\xa7kM\xcb<\x0d\x17Ndl\x1fN\x00\xa5b=\xec\xa0V\xd2\x9e\xd6\xb4\xe1\xa2\xcf\xc0PiN\x0dj^\x9fCC?\x9d\xderf7\x19\xbcXjl\xdc\x8d^s\x99\xc17\x1a\x1b\xa0\x9dU\xe7\xb0\xf7\xae\xb8l;\xfb\xa7\xed[,:-\xde\xc3\x0e\x06\xc3\xb3\xe5\xf2\xabsh)c\\\xae3H^x?\xc1\xe8Y\xadtC\xad\x01AK\x14\xb0\x03\xc6M+h\x9fA)Tus\x80K\xbevx\xcb\xd1\xae\xd5j\xad\xd1\x98\xbb(A\x9a\xa0\xd6J\xc3\x0e*%\x94\xce\xe0Y\xb9\x1c,\xf3tH>O\x03\x85\xb9c\xc0\xb3\xb29\x9b\xb3\xb59\xf3\x97.<\xe0\xac\x88\xa8\xa4\xa2\xff\x0bO\xddE\x14\xb8\xcb}\xc6\xe03\x8e:-\"\xaf\xe8\x0f\xad\xa0\x15n\x94`\xa8\x8b\xe8-5\x16\x81\xc2\x963T\xf0\xfb\xbb\xd7\x11h\xfc\xd8q\x8dlpTv\xd6*9x2]\xd9p\x1b\xad\xbe\x0f\x88y\x1a\xa4>\x9c\xd4\xc1\xfb\x13\xe3[\x0f7\xf0\x17\xad\xf2\x94\xf1\xad\x17M\xdc8yIu\xe4\xaaXDg\xcbe\x04[*:,\xa2e\x04\x1b\xce\x18\xcaU\x9e\x8e\xea\xc1\xd6\x1b\x19Km\xe7}\xb6\xab'\xbec*\xcd[\x1b\xa2\xad\x944\x16\x82\xca\x85\x80\x02\x98\xaa\xba\x06\xa5M\xd6h/\x04\xba\xe3\x0f\xfd\xcf,&A\x87,\xcegv%\xd5\x0f\x99\x94T;}o\xf0E\xa5y-\xc8\"\xa1\x8c]lQ\xda\xd7\xdcX\x94\xa8c\x12($'@M/+\x88q\xbb\x80b\x05;\xef\x16\x00\xb7I\xab\xd1\x99\xbc\xc2\x9av\xc2\xc6C\x880\xa5\x95X\xfcd_*iQZ(\x80\x84bp\xb9N\x92\x84\x8c\xca!#\x8d\x06\n\xa0\xb7\x94[\xa8\xd1V\x9b\x98\xa4\xb4\xe5\xe9\x10%9\x99p\x01\x1a\xb4\x1b\xc52 o\xdf\\^\x91\x93\xe9\xde\xf5\"j\x93\xc1\x8e\x0c\xa0\xa7W}\x8b$\x03B\xdbV\xf0\x8aZ\xaedzm\x94$\xfb\x83\x99\xeb\xdd\x0c~\xb9|\xf3[b\xac\xe6r\xcd\xeb>\xdeuZd_&\xaf\xd3\x82,\x12\xdf\x07\xfb\xc5\xe0i\xbf8N\xc9o\x851'\x8d&q\xc0\x07\x92x\x0d\xf1Sw\xadn\x16\xb3\xe4&\xee\xb8\x94\xa8\x7f\xba\xfa\xf5\xb5c.7-\x95P	jL\x11\xf9\xb9\x8cV\x04\x9e{\x8caN\x9f\x03\xc9S\xa7\xb6\x9a\xa8\x05\xd0h;-\xc7\xff\xfb\x87\xeb\xe3\x9d\xf9\x05w\x9c\x88\x9b\x92\x07\xbam\x18\x1e2e\xc6\xf8\xf68\xfa)\xa0Zi\x88\x83\xd3\x1aT\x1d\x10\x07\xfb9	A%l\xb3\x19r\xa5\x91Z\x1c\xc0c\xe2\xe5\x07X\x08\x06w\x88\x9b\xaf\x17M\x19W\x11H\xda\xe08\xf3\xd30;6\xeb\x843\xc7c\xb4\x82\xf0\xd7;<\xf8w\x89\xd1\xb6E\xc9^n\xb8`\xb1\x17/\xee\xb2;T\xdf\xca\x07B\x0f\xdb\xe8\x10{i\xe5\xdday\xa5n\xa5P\x94\x91\xb9\xce\xfd)\xad\x04\xafn\xc8\x89\xab\xa9\xb6\xa3\xcdQ)\xe6\x11\x97V\x0e\xb2\xfd\xb8 \xc2t\xd7\x9d\xac\xdct\x1c\xfb\x89\x0fE\x19\xaa\xe6I\x9b'\xf6\xb1C\xdd_\xa2\xc0\xca*\x1d\x93\xf0\xfd\xf2\x0c\x07\xdd\xf7Y\xb5\xc1\xea\x06\x19Y<n\xe2\xd9\x98\xf7\x7f>\xf2\x93\x18\xe0\xd1\xd3\x7f23\n	\x7f\xe0,\x1by\xfan8\x04]\xc8\x80\x90I\xff\x7f\xb87J\xaa\x93\xf0\xc5\x83\x02j*\xcc\x9dE\xe1+*\xf1\x16|\x8f^\xaaNW8Tu\xfc>\xa6\x13\xfa\xb5*?\xf0C\xa7\xba\x84d\x83\xc6\xd05Bq\xefk3B\\C\x11\xea\xd6\xba\xc7Z\x8c\xdb\x84QKg;\xc0\xc5\x18\xd8.\xe0:\x19a\xcf\xef\xf3t<n\xd7\x89\x13\xe0A\xcf\xd1<\\BQ\x14@\xde!e=\x99S\xee\x83\xae\x842\x18\xcf\x02\x00\xb8\xe5\x92\xa9\xdbD\xa8\xd0}\xae\x0e\x9e\x03\x8d\xa6\x13\xf6.\x03\x07\xcb=\xa00x\x1f\xf9G\xca\x052\x02\x9f?\xc3\xd1\xfd\xc5\xa7\xd6=\x7f\x1e\x15\xd3\xbfk\x8f\xf8zh\x8e\x03\xe4\xe2\x9f\x1bel\x8d\xfd\xb0U\xc2\xebpx\xe8\xe4ix\x17\xe6ix\x81\xff\x1d\x00\x00\xff\xffPK\x07\x08\xc5\x00\x1e+e\x04\x00\x00\x92\x0b\x00\x00PK\x01\x02\x14\x03\x14\x00\x08\x00\x08\x00\x801\x1b]\xc5\x00\x1e+e\x04\x00\x00\x92\x0b\x00\x00\n\x00	\x00\x00\x00\x00\x00\x00\x00\x00\x00\xa4\x81\x00\x00\x00\x00index.htmlUT\x05\x00\x010\xd5\x8fjPK\x05\x06\x00\x00\x00\x00\x01\x00\x01\x00A\x00\x00\x00\xa6\x04\x00\x00\x00\x00"
	fs.Register(data)
}
